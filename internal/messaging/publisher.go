package messaging

import (
	"context"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
)

// Publisher defines the interface for announcing finished holder snapshots
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishSnapshot publishes a holder snapshot to the message broker
	PublishSnapshot(ctx context.Context, snapshot *domain.HolderSnapshot) error
	// Close closes the connection
	Close()
}
