// Package eventbus is the in-process pub/sub channel between the run pipeline
// and its observers (metrics, notifications, websocket streams).
package eventbus

import (
	"sync"
	"time"

	"github.com/mescon/Dupearr/internal/domain"
	"github.com/mescon/Dupearr/internal/logger"
)

// Publisher is the subset of EventBus the pipeline and its observers depend
// on; tests substitute their own recorders.
type Publisher interface {
	Publish(event domain.Event)
	Subscribe(eventType domain.EventType, handler func(domain.Event))
}

var _ Publisher = (*EventBus)(nil)

// EventBus fans events out to per-subscriber buffered channels. Delivery is
// asynchronous and best-effort: a subscriber with a full buffer misses events
// rather than blocking the publisher.
type EventBus struct {
	subscribers map[domain.EventType][]chan domain.Event
	mu          sync.RWMutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[domain.EventType][]chan domain.Event),
		stopChan:    make(chan struct{}),
	}
}

// Publish delivers an event to all subscribers of its type.
func (eb *EventBus) Publish(event domain.Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	logger.Debugf("EventBus: publishing %s (run %s)", event.EventType, event.RunID)

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.EventType] {
		select {
		case ch <- event:
		default:
			// Drop rather than block the publisher.
		}
	}
}

// Subscribe registers a handler for one event type. The handler runs on its
// own goroutine until Shutdown.
func (eb *EventBus) Subscribe(eventType domain.EventType, handler func(domain.Event)) {
	ch := make(chan domain.Event, 100)

	eb.mu.Lock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	eb.mu.Unlock()

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				handler(event)
			case <-eb.stopChan:
				return
			}
		}
	}()
}

// Shutdown stops all subscriber goroutines and waits for them to finish.
func (eb *EventBus) Shutdown() {
	close(eb.stopChan)
	eb.wg.Wait()
	logger.Infof("EventBus shutdown complete")
}
