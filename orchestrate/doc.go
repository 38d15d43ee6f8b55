// Package orchestrate ties classification, routing, retrieval, and model
// invocation into the per-request lifecycle.
//
// Each request advances through a fixed state machine:
//
//	RECEIVED -> CLASSIFYING -> ROUTED -> INVOKING -> STREAMING -> {COMPLETED | FAILED}
//
// The orchestrator is the only component aware of cancellation and timeouts.
// Requests are independent: the only shared state is the registry snapshot
// taken at ingress, which an admin reload never mutates.
//
// The output of a request is an ordered sequence of Event values delivered
// on a channel: a synthetic thinking event first, then response chunks and
// tool calls in upstream order, then exactly one terminal done or error
// event, after which the channel closes.
package orchestrate
