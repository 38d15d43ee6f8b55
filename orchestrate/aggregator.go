package orchestrate

import (
	"context"
	"time"

	"github.com/sitecheck-ai/agentforge/llm"
)

// aggregator folds a provider event stream into outward-facing events.
// It enforces the stream contract: exactly one terminal event, a first-token
// deadline before any content arrives, and an idle deadline between chunks
// once streaming has begun.
type aggregator struct {
	out   chan<- Event
	agent string

	firstTokenDeadline time.Time
	idleTimeout        time.Duration
	onFirstToken       func()
}

// streamResult reports how the upstream stream ended.
type streamResult struct {
	tokens   int
	err      error
	errKind  string
	canceled bool
}

// run consumes src until a terminal condition and emits the corresponding
// events. On cancellation it returns without emitting anything further.
func (a *aggregator) run(ctx context.Context, src <-chan llm.ProviderEvent) streamResult {
	var res streamResult

	timer := time.NewTimer(time.Until(a.firstTokenDeadline))
	defer timer.Stop()

	resetTimer := func(d time.Duration) {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			res.canceled = true
			return res

		case <-timer.C:
			if res.tokens == 0 {
				res.err = context.DeadlineExceeded
				res.errKind = KindTimeout
				a.emit(ctx, Event{Type: EventError, Content: "no response from provider before deadline", Agent: a.agent, ErrorKind: KindTimeout})
			} else {
				res.err = context.DeadlineExceeded
				res.errKind = KindIdleTimeout
				a.emit(ctx, Event{Type: EventError, Content: "provider stream stalled", Agent: a.agent, ErrorKind: KindIdleTimeout})
			}
			return res

		case ev, ok := <-src:
			if !ok {
				// The retry layer always ends a stream with End or Err, so a
				// bare close means it was torn down mid-flight.
				res.err = context.Canceled
				res.errKind = KindCanceled
				return res
			}
			switch ev.Kind {
			case llm.EventToken:
				if res.tokens == 0 && a.onFirstToken != nil {
					a.onFirstToken()
				}
				res.tokens++
				resetTimer(a.idleTimeout)
				if !a.emit(ctx, Event{Type: EventResponse, Content: ev.Text, Agent: a.agent}) {
					res.canceled = true
					return res
				}
			case llm.EventToolCall:
				res.tokens++
				resetTimer(a.idleTimeout)
				if !a.emit(ctx, Event{Type: EventToolCall, Agent: a.agent, Tool: ev.ToolCall}) {
					res.canceled = true
					return res
				}
			case llm.EventEnd:
				a.emit(ctx, Event{Type: EventDone, Agent: a.agent})
				return res
			case llm.EventErr:
				res.err = ev.Err
				res.errKind = errorKind(ev.Err)
				a.emit(ctx, Event{Type: EventError, Content: ev.Err.Error(), Agent: a.agent, ErrorKind: res.errKind})
				return res
			}
		}
	}
}

// emit delivers one event, bailing out if the consumer is gone.
func (a *aggregator) emit(ctx context.Context, ev Event) bool {
	select {
	case a.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
