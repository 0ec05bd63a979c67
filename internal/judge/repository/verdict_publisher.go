package repository

import (
	"context"
	"encoding/json"

	"verdict/internal/common/mq"
	"verdict/internal/judge/model"
	"verdict/pkg/utils/logger"

	"go.uber.org/zap"
)

// VerdictPublisher emits one event per completed judge call. Publishing is
// best effort: a broker outage must not fail the judge call itself.
type VerdictPublisher struct {
	producer mq.Producer
	topic    string
}

// NewVerdictPublisher creates a publisher for the given topic.
func NewVerdictPublisher(producer mq.Producer, topic string) *VerdictPublisher {
	return &VerdictPublisher{producer: producer, topic: topic}
}

// Publish sends the verdict event, logging instead of failing on error.
func (p *VerdictPublisher) Publish(ctx context.Context, event model.VerdictEvent) {
	if p == nil || p.producer == nil || p.topic == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error(ctx, "marshal verdict event failed", zap.Error(err))
		return
	}
	msg := mq.NewMessage(body)
	msg.ID = event.ResultID
	msg.SetHeader("x-problem-id", event.ProblemID)
	msg.SetHeader("x-verdict", string(event.Verdict))

	if err := p.producer.Publish(ctx, p.topic, msg); err != nil {
		logger.Error(ctx, "publish verdict event failed",
			zap.String("resultId", event.ResultID),
			zap.String("topic", p.topic),
			zap.Error(err))
	}
}
