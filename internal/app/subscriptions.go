package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/drafter/internal/event"
)

// subscriptionManager tracks the application's bus subscriptions so they
// can be removed together.
type subscriptionManager struct {
	mu   sync.Mutex
	bus  *event.Bus
	subs []*event.Subscription
}

func newSubscriptionManager(bus *event.Bus) *subscriptionManager {
	return &subscriptionManager{bus: bus}
}

func (m *subscriptionManager) subscribe(pattern event.Topic, h event.Handler, opts ...event.SubscriptionOption) error {
	sub, err := m.bus.Subscribe(pattern, h, opts...)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return nil
}

func (m *subscriptionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *subscriptionManager) unsubscribeAll() error {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := m.bus.Unsubscribe(sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initSubscriptions installs the metrics, logging and modification
// tracking handlers.
func (a *Application) initSubscriptions(_ context.Context) error {
	a.subs = newSubscriptionManager(a.bus)
	log := a.logger.WithComponent("events")

	handlers := []struct {
		pattern event.Topic
		handler event.Handler
		prio    event.Priority
	}{
		{"**", func(_ context.Context, ev any) error {
			if tp, ok := ev.(event.TopicProvider); ok {
				a.metrics.RecordEvent(tp.EventTopic())
				log.Debug("event", "topic", tp.EventTopic())
			}
			return nil
		}, event.PriorityHigh},
		{"object.*", a.markModified, event.PriorityNormal},
		{"property.*", a.markModified, event.PriorityNormal},
		{"history.*", a.markModified, event.PriorityNormal},
		{"journal.*", a.markModified, event.PriorityNormal},
	}
	for _, h := range handlers {
		if err := a.subs.subscribe(h.pattern, h.handler, event.WithPriority(h.prio)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) markModified(context.Context, any) error {
	a.modified.Store(true)
	return nil
}
