package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/user/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered  = "storefront.user.registered"
	TopicUserDeactivated = "storefront.user.deactivated"
)

const AggregateTypeUser = "user"

// Source identifier for events originating from the user module.
const SourceUser = "storefront-user"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UserDeactivatedData is the payload for a user.deactivated event.
type UserDeactivatedData struct {
	UserID        string `json:"user_id"`
	DeactivatedBy string `json:"deactivated_by"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the user module.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	data := UserRegisteredData{
		UserID: u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, data.UserID, AggregateTypeUser, SourceUser, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", data.UserID),
	)

	return nil
}

// PublishUserDeactivated publishes a user.deactivated event.
func (p *Producer) PublishUserDeactivated(ctx context.Context, u *domain.User, actorID string) error {
	data := UserDeactivatedData{
		UserID:        u.ID.String(),
		DeactivatedBy: actorID,
	}

	event, err := pkgkafka.NewEvent(TopicUserDeactivated, data.UserID, AggregateTypeUser, SourceUser, data)
	if err != nil {
		return fmt.Errorf("create user.deactivated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeactivated, event); err != nil {
		return fmt.Errorf("publish user.deactivated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.deactivated event",
		slog.String("user_id", data.UserID),
	)

	return nil
}
