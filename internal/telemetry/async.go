package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"volunteer-platform/backend/internal/telemetry/domain"
)

// emitTimeout bounds a single background emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the longest Drain needs to wait: no background emit outlives emitTimeout.
const ShutdownDrainDuration = emitTimeout

var inFlight sync.WaitGroup

// EmitAsync sends event from a goroutine so request paths never block on the collector.
// Failures are logged. A nil emitter or event is a no-op. Request cancellation does not abort the emit.
func EmitAsync(emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	inFlight.Add(1)
	go func() {
		defer inFlight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: async emit %s failed: %v", event.EventType, err)
		}
	}()
}

// Drain waits until every background emit has returned or ctx is done. Call it after the
// servers stop and before the OTel providers shut down.
func Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
