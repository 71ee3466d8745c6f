package ports

import "context"

// EventPublisher publishes authentication events to other consumers
type EventPublisher interface {
	PublishVerified(ctx context.Context, address string, chainID int64) error
	PublishLogout(ctx context.Context, address string) error
}
