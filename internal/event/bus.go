// Package event carries transaction lifecycle events inside the process
// (EventBus topics) and the payloads relayed to the message queue.
package event

import (
	evbus "github.com/asaskevich/EventBus"
)

// Handler receives a published transaction event.
type Handler func(TransactionEvent)

// Bus is an in-process publish/subscribe hub for TransactionEvent.
type Bus struct {
	bus evbus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish delivers ev to every subscriber of topic.
func (b *Bus) Publish(topic string, ev TransactionEvent) {
	b.bus.Publish(topic, ev)
}

// Subscribe runs h synchronously inside Publish.
func (b *Bus) Subscribe(topic string, h Handler) error {
	return b.bus.Subscribe(topic, h)
}

// SubscribeAsync runs h on its own goroutine; with serial set, deliveries
// to h never overlap.
func (b *Bus) SubscribeAsync(topic string, h Handler, serial bool) error {
	return b.bus.SubscribeAsync(topic, h, serial)
}

func (b *Bus) Unsubscribe(topic string, h Handler) error {
	return b.bus.Unsubscribe(topic, h)
}

// WaitAsync blocks until asynchronous handlers are done.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
