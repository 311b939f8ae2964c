package jetstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-holder-indexer/internal/adapter"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/mocks"
	"github.com/feral-file/ff-holder-indexer/internal/providers/jetstream"
)

type publisherMocks struct {
	ctrl   *gomock.Controller
	natsJS *mocks.MockNatsJetStream
	conn   *mocks.MockNatsConn
	js     *mocks.MockJetStream
}

func setupPublisherMocks(t *testing.T) *publisherMocks {
	ctrl := gomock.NewController(t)
	return &publisherMocks{
		ctrl:   ctrl,
		natsJS: mocks.NewMockNatsJetStream(ctrl),
		conn:   mocks.NewMockNatsConn(ctrl),
		js:     mocks.NewMockJetStream(ctrl),
	}
}

var testConfig = jetstream.Config{
	URL:            "nats://localhost:4222",
	StreamName:     "HOLDERS",
	MaxReconnects:  5,
	ReconnectWait:  time.Second,
	ConnectionName: "holders-test",
}

func TestBuildSubject(t *testing.T) {
	assert.Equal(t, "holders.ethereum.snapshot", jetstream.BuildSubject(domain.ChainEthereumMainnet))
	assert.Equal(t, "holders.base.snapshot", jetstream.BuildSubject(domain.ChainBaseMainnet))
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	m := setupPublisherMocks(t)
	defer m.ctrl.Finish()
	ctx := context.Background()

	m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().EnsureStream(ctx, "HOLDERS", []string{"holders.>"}).Return(nil)

	pub, err := jetstream.NewPublisher(ctx, testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	m.conn.EXPECT().Close()
	pub.Close()
}

func TestNewPublisher_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("connect fails", func(t *testing.T) {
		m := setupPublisherMocks(t)
		defer m.ctrl.Finish()

		m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nil, nil, errors.New("no servers available"))
		_, err := jetstream.NewPublisher(ctx, testConfig, m.natsJS, adapter.NewJSON())
		assert.ErrorContains(t, err, "no servers available")
	})

	t.Run("stream fails closes connection", func(t *testing.T) {
		m := setupPublisherMocks(t)
		defer m.ctrl.Finish()

		m.natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(m.conn, m.js, nil)
		m.js.EXPECT().EnsureStream(ctx, "HOLDERS", gomock.Any()).Return(errors.New("insufficient resources"))
		m.conn.EXPECT().Close()

		_, err := jetstream.NewPublisher(ctx, testConfig, m.natsJS, adapter.NewJSON())
		assert.ErrorContains(t, err, "insufficient resources")
	})
}

func TestPublisher_PublishSnapshot(t *testing.T) {
	m := setupPublisherMocks(t)
	defer m.ctrl.Finish()
	ctx := context.Background()

	m.natsJS.EXPECT().Connect(gomock.Any(), gomock.Any()).Return(m.conn, m.js, nil)
	m.js.EXPECT().EnsureStream(ctx, gomock.Any(), gomock.Any()).Return(nil)
	pub, err := jetstream.NewPublisher(ctx, testConfig, m.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	snapshot := &domain.HolderSnapshot{
		ID:              "01JNE1ZK6Q0000000000000001",
		Chain:           domain.ChainBaseMainnet,
		ContractAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Holders:         []domain.HolderBalance{{Address: "0x000000000000000000000000000000000000000A", Balance: "1"}},
	}

	m.js.EXPECT().
		Publish(ctx, "holders.base.snapshot", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			var got domain.HolderSnapshot
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, snapshot.ID, got.ID)
			assert.Len(t, opts, 1)
			return &natsjs.PubAck{Stream: "HOLDERS", Sequence: 1}, nil
		})
	require.NoError(t, pub.PublishSnapshot(ctx, snapshot))

	m.js.EXPECT().Publish(ctx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
	assert.ErrorContains(t, pub.PublishSnapshot(ctx, snapshot), "failed to publish snapshot")

	assert.Error(t, pub.PublishSnapshot(ctx, nil))
}
