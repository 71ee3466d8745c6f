package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dshuvalov/jumper-challenge/ports"
)

const (
	// TopicVerified receives an event for every successful sign-in
	TopicVerified = "jumper.auth.verified"
	// TopicLogout receives an event for every logout
	TopicLogout = "jumper.auth.logout"
)

// VerifiedEvent represents a successful SIWE verification
type VerifiedEvent struct {
	Address    string    `json:"address"`
	ChainID    int64     `json:"chain_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address    string    `json:"address,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishVerified publishes a verified event
func (p *WatermillPublisher) PublishVerified(ctx context.Context, address string, chainID int64) error {
	return p.publish(ctx, TopicVerified, VerifiedEvent{
		Address:    address,
		ChainID:    chainID,
		OccurredAt: p.now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string) error {
	return p.publish(ctx, TopicLogout, LogoutEvent{
		Address:    address,
		OccurredAt: p.now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
