// events.go - Event-Typen und Best-Effort-Zustellung
//
// Enthält:
// - Event/EventKind fuer Progress, Preview, Complete und Error
// - notifier: entkoppelt den Denoising-Loop vom Abnehmer
//
// Zustellung ist best effort in Emissions-Reihenfolge: Progress- und
// Preview-Events werden bei vollem Puffer verworfen statt den Loop zu
// blockieren. Terminal-Events (Complete/Error) werden immer zugestellt,
// der Loop ist zu dem Zeitpunkt bereits beendet.

package pipeline

import "sync"

// EventKind identifies the notification type.
type EventKind int

const (
	EventProgress EventKind = iota
	EventPreview
	EventComplete
	EventError
)

// String returns a readable kind name.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventPreview:
		return "preview"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a fire-and-forget notification to the generation's subscriber.
type Event struct {
	Kind EventKind

	// Step counts from 1, TotalSteps is the request's step count.
	Step       int
	TotalSteps int

	// Progress is Step/TotalSteps for EventProgress.
	Progress float64

	// PreviewPath is the temporary image file for EventPreview. The file
	// is removed when the generation ends, consumers copy what they keep.
	PreviewPath string

	// Result is set for EventComplete.
	Result *GenerationResult

	// Message carries the human-readable reason for EventError.
	Message string
}

// EventFunc receives events for one generation. At most one subscriber per
// generation; a nil func disables notifications.
type EventFunc func(Event)

// notifier pumps events through a buffered channel to a single consumer
// goroutine so a slow EventFunc never stalls the denoising loop.
type notifier struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

const eventBuffer = 64

func newNotifier(fn EventFunc) *notifier {
	n := &notifier{
		ch:   make(chan Event, eventBuffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		for ev := range n.ch {
			if fn != nil {
				fn(ev)
			}
		}
	}()
	return n
}

// emit enqueues a progress or preview event, dropping it when the buffer
// is full.
func (n *notifier) emit(ev Event) {
	select {
	case n.ch <- ev:
	default:
	}
}

// emitFinal enqueues a terminal event. Blocking is fine here, the compute
// loop has already ended.
func (n *notifier) emitFinal(ev Event) {
	n.ch <- ev
}

// close flushes remaining events and waits for the consumer to finish.
// After close returns, no further events are delivered.
func (n *notifier) close() {
	n.once.Do(func() {
		close(n.ch)
	})
	<-n.done
}
