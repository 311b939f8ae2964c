package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/messaging"
)

// SubjectPrefix is the root of every snapshot subject
const SubjectPrefix = "holders"

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewPublisher connects to NATS, makes sure the snapshot stream exists
// and returns a publisher bound to it
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	if err := js.EnsureStream(ctx, cfg.StreamName, []string{SubjectPrefix + ".>"}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
	}, nil
}

// PublishSnapshot publishes a holder snapshot to NATS JetStream.
// The snapshot ID is used as the message ID so redeliveries are deduplicated.
func (p *publisher) PublishSnapshot(ctx context.Context, snapshot *domain.HolderSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("nil snapshot")
	}

	logger.DebugCtx(ctx, "Publishing holder snapshot",
		zap.String("id", snapshot.ID),
		zap.String("contract", snapshot.ContractAddress),
		zap.Int("holders", len(snapshot.Holders)))

	data, err := p.json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var opts []jetstream.PublishOpt
	if snapshot.ID != "" {
		opts = append(opts, jetstream.WithMsgID(snapshot.ID))
	}

	if _, err := p.js.Publish(ctx, BuildSubject(snapshot.Chain), data, opts...); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	return nil
}

// BuildSubject returns the snapshot subject of a chain
// e.g., holders.ethereum.snapshot, holders.base.snapshot
func BuildSubject(chain domain.Chain) string {
	return fmt.Sprintf("%s.%s.snapshot", SubjectPrefix, chain.Name())
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
