// Package pubsub implements a Google Cloud Pub/Sub publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"
)

// Publisher publishes JSON payloads to Pub/Sub topics, caching one
// topic publisher per topic name.
type Publisher struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// New creates a Publisher backed by the provided client.
func New(client *pubsub.Client) *Publisher {
	return &Publisher{
		client:     client,
		publishers: make(map[string]*pubsub.Publisher),
	}
}

// Publish marshals the payload to JSON and publishes it to the topic,
// blocking until the server acknowledges the message.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data, Attributes: make(map[string]string)}
	otel.GetTextMapPropagator().Inject(ctx, &pubsubCarrier{attrs: msg.Attributes})

	result := p.topicPublisher(topic).Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

func (p *Publisher) topicPublisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pub, ok := p.publishers[topic]; ok {
		return pub
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub
}

// Close stops all topic publishers.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
}

// pubsubCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type pubsubCarrier struct {
	attrs map[string]string
}

func (c *pubsubCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *pubsubCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *pubsubCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
