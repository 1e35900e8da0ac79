// Package events publishes leaderboard activity to NATS JetStream for
// downstream consumers (notifications, analytics). Publishing is optional
// and best-effort: a nil publisher is a no-op and failures never surface to
// API callers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/logger"
)

const (
	RankEventsStream = "RANK_EVENTS"

	SubjectUserCreated   = "events.rank.userCreated"
	SubjectPointsClaimed = "events.rank.pointsClaimed"

	RankEventsWildcard = "events.rank.*"
)

type UserCreatedEvent struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

type PointsClaimedEvent struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	PointsAdded int    `json:"pointsAdded"`
	TotalPoints int    `json:"totalPoints"`
	NewRank     int    `json:"newRank"`
	Timestamp   int64  `json:"timestamp"`
}

type EventPublisher struct {
	client *Client
	logger *logger.Logger
}

func NewEventPublisher(client *Client, log *logger.Logger) *EventPublisher {
	return &EventPublisher{
		client: client,
		logger: log.With("component", "EventPublisher"),
	}
}

func (p *EventPublisher) PublishUserCreated(ctx context.Context, userID, name string) error {
	event := UserCreatedEvent{
		UserID:    userID,
		Name:      name,
		Timestamp: time.Now().UTC().Unix(),
	}

	if err := p.publish(ctx, SubjectUserCreated, event); err != nil {
		p.logger.Error("Failed to publish user created event", "error", err, "user_id", userID)
		return err
	}

	p.logger.Info("Published user created event", "user_id", userID)
	return nil
}

func (p *EventPublisher) PublishPointsClaimed(ctx context.Context, event PointsClaimedEvent) error {
	event.Timestamp = time.Now().UTC().Unix()

	if err := p.publish(ctx, SubjectPointsClaimed, event); err != nil {
		p.logger.Error("Failed to publish points claimed event", "error", err, "user_id", event.UserID)
		return err
	}

	p.logger.Info("Published points claimed event",
		"user_id", event.UserID,
		"points_added", event.PointsAdded,
	)
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventPublish, "failed to marshal event")
	}

	if _, err := p.client.js.Publish(ctx, subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventPublish, "failed to publish event")
	}

	return nil
}
