// Package memory records published messages in process. It backs tests
// and deployments that run without a pub/sub project.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// PublishedMessage is one recorded Publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// Publisher implements catalog.Publisher by appending to a slice.
type Publisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	seq      int
}

// New returns an empty Publisher.
func New() *Publisher { return &Publisher{} }

// Publish records the message and returns a synthetic message id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%d", p.seq), nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.messages...)
}

// MessagesFor returns the recorded messages for one topic.
func (p *Publisher) MessagesFor(topic string) []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedMessage
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
