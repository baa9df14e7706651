package progress

import "context"

// Emitter accepts individual events. The Hub satisfies it, and pipeline
// code depends on this interface so tests can substitute a recorder.
type Emitter interface {
	Emit(evt Event)
}

// Sink receives batches from the Hub. Consume may be called with the
// same batch slice it must not retain; Close flushes any sink-local
// state during shutdown.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}
