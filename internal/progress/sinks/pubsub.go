package sinks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress"
)

// jobEventMessage is the wire shape published for job lifecycle changes.
type jobEventMessage struct {
	JobID    string    `json:"job_id"`
	SourceID string    `json:"source_id,omitempty"`
	Stage    string    `json:"stage"`
	At       time.Time `json:"at"`
	Duration string    `json:"duration,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// PublisherSink forwards job lifecycle events to a message topic so
// downstream consumers (notification service, admin dashboard) can react
// without polling the job store. Item-level events are not forwarded to
// keep topic volume low.
type PublisherSink struct {
	publisher catalog.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublisherSink constructs a PublisherSink for the given topic.
func NewPublisherSink(publisher catalog.Publisher, topic string, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes each job lifecycle event in the batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageJobStart, progress.StageJobDone, progress.StageJobError:
		default:
			continue
		}
		msg := jobEventMessage{
			JobID:    evt.JobID,
			SourceID: evt.SourceID,
			Stage:    string(evt.Stage),
			At:       evt.TS,
			Note:     evt.Note,
		}
		if evt.Dur > 0 {
			msg.Duration = evt.Dur.String()
		}
		if _, err := s.publisher.Publish(ctx, s.topic, msg); err != nil {
			return fmt.Errorf("publish job event: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
