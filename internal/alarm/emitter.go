package alarm

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout is how long an emitter may sit idle before its stream is
// torn down.
const DefaultTimeout = 60 * time.Minute

// eventBufferSize decouples dispatchers from the client write; a dispatch
// blocks only when the client has fallen this far behind.
const eventBufferSize = 16

// ErrEmitterClosed is returned by Send once the emitter's stream has ended.
var ErrEmitterClosed = errors.New("emitter closed")

// Event is one discrete server-sent event.
type Event struct {
	ID   string
	Name string
	Data string
}

// Emitter is one long-lived server-to-client push channel. Dispatchers feed
// it through Send; the HTTP handler drains it through Stream. Once closed
// (client disconnect, idle timeout, or write failure) it never accepts
// another event.
type Emitter struct {
	events  chan Event
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
}

// NewEmitter creates an emitter with the given idle timeout
func NewEmitter(timeout time.Duration) *Emitter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Emitter{
		events:  make(chan Event, eventBufferSize),
		done:    make(chan struct{}),
		timeout: timeout,
	}
}

// Send queues one event for the client. Fails with ErrEmitterClosed when the
// underlying stream has ended.
func (e *Emitter) Send(event Event) error {
	select {
	case <-e.done:
		return ErrEmitterClosed
	default:
	}
	select {
	case e.events <- event:
		return nil
	case <-e.done:
		return ErrEmitterClosed
	}
}

// Close ends the emitter. Idempotent; wakes any blocked senders.
func (e *Emitter) Close() {
	e.once.Do(func() {
		close(e.done)
	})
}

// Done is closed when the emitter has ended
func (e *Emitter) Done() <-chan struct{} {
	return e.done
}

// Events exposes the pending event queue for consumers that drain the
// emitter without an HTTP stream.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Stream writes queued events to w as SSE frames until the client
// disconnects, the idle timeout elapses, or a write fails. The emitter is
// closed on every exit path, so the caller's deferred deregistration and any
// blocked dispatcher both observe the teardown.
func (e *Emitter) Stream(w http.ResponseWriter, r *http.Request) error {
	defer e.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	idle := time.NewTimer(e.timeout)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-idle.C:
			return nil
		case <-e.done:
			return nil
		case event := <-e.events:
			if _, err := w.Write(formatEvent(event)); err != nil {
				return err
			}
			flusher.Flush()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(e.timeout)
		}
	}
}

// formatEvent renders the wire form: "id: <id>\nevent: <name>\ndata: <data>\n\n"
func formatEvent(event Event) []byte {
	frame := "id: " + event.ID + "\n"
	frame += "event: " + event.Name + "\n"
	frame += "data: " + event.Data + "\n\n"
	return []byte(frame)
}
