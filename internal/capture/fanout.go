package capture

import "sync"

// StepEvent is published once per successfully appended step.
type StepEvent struct {
	GuideID string
	Count   int
}

// Fanout delivers step events to any number of subscribers without ever
// blocking the capture pipeline: each subscriber gets a buffered channel,
// and events that don't fit are dropped for that subscriber.
type Fanout struct {
	mu   sync.Mutex
	next int
	subs map[int]chan StepEvent
}

// NewFanout creates an empty fan-out.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[int]chan StepEvent)}
}

// Subscribe registers a listener. The returned cancel function must be
// called when the listener goes away; the channel is closed then.
func (f *Fanout) Subscribe() (<-chan StepEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan StepEvent, 16)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish sends the event to every subscriber, dropping it for any whose
// buffer is full.
func (f *Fanout) Publish(event StepEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
