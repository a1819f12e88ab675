package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
)

// Assessment event types.
const (
	AssessmentEventGenerated = "assessment.generated"
	AssessmentEventReviewed  = "assessment.reviewed"
)

// AssessmentEvent is broadcast after an assessment is generated or reviewed.
type AssessmentEvent struct {
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	AssessmentID  uint      `json:"assessment_id"`
	UserID        uint      `json:"user_id"`
	Status        string    `json:"status"`
	Mode          string    `json:"mode"`
	QuestionCount int       `json:"question_count"`
	OverallScore  *int      `json:"overall_score,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AssessmentEventPublisher fans assessment events out to downstream consumers.
// Delivery is best effort.
type AssessmentEventPublisher interface {
	Publish(ctx context.Context, eventType string, assessment dto.CodingAssessmentResponse)
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewAssessmentEventPublisher publishes to a Redis pub/sub channel and a NATS
// subject derived from channelBase. Either client may be nil.
func NewAssessmentEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) AssessmentEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":assessments"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".assessments"
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "assessment_events").Logger(),
	}
}

func (p *brokerEventPublisher) Publish(ctx context.Context, eventType string, assessment dto.CodingAssessmentResponse) {
	mode := assessment.GenerationMode
	if eventType == AssessmentEventReviewed {
		mode = assessment.ReviewMode
	}

	payload, err := json.Marshal(AssessmentEvent{
		Type:          eventType,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		Source:        p.nodeID,
		AssessmentID:  assessment.ID,
		UserID:        assessment.UserID,
		Status:        assessment.Status,
		Mode:          mode,
		QuestionCount: len(assessment.Questions),
		OverallScore:  assessment.OverallScore,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode assessment event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish assessment event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		subject := p.natsSubject + "." + strings.TrimPrefix(eventType, "assessment.")
		if err := p.nats.Publish(subject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish assessment event to nats")
		}
	}
}
