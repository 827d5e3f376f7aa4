package events

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"
)

// Hub fans run events out to any number of subscribers. Each consumer
// receives every event published after it attaches
type Hub struct {
	topic     topic.Topic[*Event]
	prod      topic.Producer[*Event]
	closeOnce sync.Once
}

var _ Sink = (*Hub)(nil)

// NewHub creates a new run event hub
func NewHub() *Hub {
	t := caravan.NewTopic[*Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish sends an event to every attached consumer
func (h *Hub) Publish(ev *Event) {
	message.Send(h.prod, ev)
}

// NewConsumer attaches a new subscriber to the hub. The caller owns the
// consumer and must Close it when done
func (h *Hub) NewConsumer() topic.Consumer[*Event] {
	return h.topic.NewConsumer()
}

// Close shuts down the hub's producer side
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.prod.Close()
	})
}
