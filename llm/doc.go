// Package llm provides a provider-agnostic model invocation layer. It wraps
// the gollm library (github.com/teilomillet/gollm) behind a uniform Adapter
// interface so the rest of the system never branches on which vendor is
// actually serving a request.
//
// # Architecture
//
//   - Adapter: the interface every provider backend implements (Name,
//     Complete, Stream). One implementation per provider, selected by
//     configuration.
//   - Client: holds registered adapters and resolves which one serves an
//     Invocation, consulting the model catalog when the invocation does not
//     name a provider.
//   - RetryPolicy / StreamWithRetry: bounded retry with jittered exponential
//     backoff for transient provider failures. Retries stop permanently the
//     moment the first token has been observed.
//   - Catalog: known models with capabilities, categories, and alias
//     resolution, used for model selection.
//
// # Streaming
//
// Stream returns a channel of ProviderEvent values. The adapter must yield
// the first token before generation completes; buffering the whole response
// violates the streaming contract. The sequence is finite and not
// restartable: End or Err is always the last event.
//
//	events, err := client.StreamWithRetry(ctx, llm.Invocation{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: []llm.Message{llm.User("Summarize our PPE policy")},
//	})
//	for ev := range events {
//	    switch ev.Kind {
//	    case llm.EventToken:
//	        fmt.Print(ev.Text)
//	    }
//	}
//
// # Errors
//
// Provider failures are classified into UnavailableError (connection or auth
// failure), RateLimitedError, and BadRequestError (invalid parameters,
// non-retryable). IsRetryable reports whether the retry controller may issue
// another attempt.
package llm
