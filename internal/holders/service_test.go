package holders_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-holder-indexer/internal/cache"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/holders"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/mocks"
	"github.com/feral-file/ff-holder-indexer/internal/scanner"
	"github.com/feral-file/ff-holder-indexer/internal/transfer"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const contractHex = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

var (
	contract = common.HexToAddress(contractHex)
	zero     = common.Address{}
	holderA  = common.HexToAddress("0x000000000000000000000000000000000000000a")
	holderB  = common.HexToAddress("0x000000000000000000000000000000000000000b")
	now      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func transferLog(from, to common.Address, value int64, block uint64, index uint) types.Log {
	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			transfer.TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
		BlockNumber: block,
		Index:       index,
	}
}

func ptr(v uint64) *uint64 { return &v }

type serviceMocks struct {
	ctrl      *gomock.Controller
	fetcher   *mocks.MockFetcher
	head      *mocks.MockBlockHeadProvider
	clock     *mocks.MockClock
	store     *mocks.MockStore
	cache     *mocks.MockSnapshotCache
	publisher *mocks.MockPublisher
}

func setupService(t *testing.T, withOptional bool) (*serviceMocks, holders.Service) {
	ctrl := gomock.NewController(t)
	m := &serviceMocks{
		ctrl:    ctrl,
		fetcher: mocks.NewMockFetcher(ctrl),
		head:    mocks.NewMockBlockHeadProvider(ctrl),
		clock:   mocks.NewMockClock(ctrl),
	}
	m.clock.EXPECT().Now().Return(now).AnyTimes()
	m.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()

	deps := holders.Deps{
		Fetcher: m.fetcher,
		Head:    m.head,
		Clock:   m.clock,
	}
	if withOptional {
		m.store = mocks.NewMockStore(ctrl)
		m.cache = mocks.NewMockSnapshotCache(ctrl)
		m.publisher = mocks.NewMockPublisher(ctrl)
		deps.Store = m.store
		deps.Cache = m.cache
		deps.Publisher = m.publisher
	}

	svc := holders.NewService(holders.Config{
		Chain:            domain.ChainEthereumMainnet,
		DefaultFromBlock: 7,
		DefaultTopN:      50,
		BatchConcurrency: 2,
	}, deps)
	t.Cleanup(svc.Close)

	return m, svc
}

func TestFetchTopHolders_InvalidInput(t *testing.T) {
	_, svc := setupService(t, false)
	ctx := context.Background()

	_, err := svc.FetchTopHolders(ctx, holders.Request{Contract: "0x1234"})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, TopN: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidTopN)

	_, err = svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, TopN: domain.MAX_TOP_N + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTopN)
}

func TestFetchTopHolders_FullPipeline(t *testing.T) {
	m, svc := setupService(t, true)
	defer m.ctrl.Finish()
	ctx := context.Background()
	checksum := contract.Hex()

	m.store.EXPECT().GetStartBlock(ctx, domain.ChainEthereumMainnet, checksum).Return(uint64(100), true, nil)
	m.head.EXPECT().GetSafeBlock(ctx).Return(uint64(10_000), nil)

	key := cache.Key{Chain: domain.ChainEthereumMainnet, Contract: checksum, FromBlock: 100, ToBlock: 10_000, TopN: 1}
	m.cache.EXPECT().Get(ctx, key).Return(nil, domain.ErrCacheMiss)

	// logs arrive in descending chunk order; decoding sorts them
	m.fetcher.EXPECT().
		Fetch(ctx, scanner.LogQuery{Address: contract, FromBlock: 100, ToBlock: 10_000}).
		Return(&scanner.FetchResult{
			Logs: []types.Log{
				transferLog(holderA, holderB, 40, 9_000, 0),
				transferLog(zero, holderA, 100, 200, 1),
				{Address: contract, Topics: []common.Hash{common.HexToHash("0x01")}, BlockNumber: 300},
			},
			Chunks:   []domain.BlockRange{{Start: 6001, End: 10_000}, {Start: 100, End: 6000}},
			Requests: 2,
		}, nil)

	var saved *domain.HolderSnapshot
	m.store.EXPECT().SaveSnapshot(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *domain.HolderSnapshot) error {
		saved = s
		return nil
	})
	m.cache.EXPECT().Set(ctx, key, gomock.Any()).Return(nil)
	m.publisher.EXPECT().PublishSnapshot(ctx, gomock.Any()).Return(nil)

	snapshot, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, TopN: 1})
	require.NoError(t, err)

	assert.Equal(t, []domain.HolderBalance{{Address: holderA.Hex(), Balance: "60"}}, snapshot.Holders)
	assert.Equal(t, 2, snapshot.HolderCount)
	assert.Equal(t, 2, snapshot.TransferCount)
	assert.Equal(t, 0, snapshot.ClampedDebits)
	assert.Equal(t, checksum, snapshot.ContractAddress)
	assert.Equal(t, uint64(100), snapshot.FromBlock)
	assert.Equal(t, uint64(10_000), snapshot.ToBlock)
	assert.True(t, snapshot.Complete)
	assert.Empty(t, snapshot.SkippedRanges)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, now, snapshot.ScannedAt)
	assert.Same(t, snapshot, saved)
}

func TestFetchTopHolders_PartialSnapshotIsNotCached(t *testing.T) {
	m, svc := setupService(t, true)
	defer m.ctrl.Finish()
	ctx := context.Background()

	m.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, domain.ErrCacheMiss)
	m.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&scanner.FetchResult{
		Logs:    []types.Log{transferLog(holderA, holderB, 30, 50, 0)},
		Skipped: []domain.BlockRange{{Start: 0, End: 511}},
	}, nil)
	m.store.EXPECT().SaveSnapshot(ctx, gomock.Any()).Return(errors.New("connection refused"))
	m.publisher.EXPECT().PublishSnapshot(ctx, gomock.Any()).Return(errors.New("nats: timeout"))

	snapshot, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, FromBlock: ptr(0), ToBlock: ptr(1000)})
	require.NoError(t, err)

	assert.False(t, snapshot.Complete)
	assert.Equal(t, []domain.BlockRange{{Start: 0, End: 511}}, snapshot.SkippedRanges)
	assert.Equal(t, 1, snapshot.ClampedDebits)
	assert.Equal(t, []domain.HolderBalance{{Address: holderB.Hex(), Balance: "30"}}, snapshot.Holders)
	assert.Equal(t, 50, snapshot.TopN)
}

func TestFetchTopHolders_CacheHit(t *testing.T) {
	m, svc := setupService(t, true)
	defer m.ctrl.Finish()
	ctx := context.Background()

	cached := &domain.HolderSnapshot{ID: "cached"}
	m.cache.EXPECT().Get(ctx, gomock.Any()).Return(cached, nil)

	snapshot, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, FromBlock: ptr(1), ToBlock: ptr(2)})
	require.NoError(t, err)
	assert.Same(t, cached, snapshot)
}

func TestFetchTopHolders_ResolvesBounds(t *testing.T) {
	t.Run("default start block without store", func(t *testing.T) {
		m, svc := setupService(t, false)
		defer m.ctrl.Finish()
		ctx := context.Background()

		m.head.EXPECT().GetSafeBlock(ctx).Return(uint64(900), nil)
		m.fetcher.EXPECT().
			Fetch(ctx, scanner.LogQuery{Address: contract, FromBlock: 7, ToBlock: 900}).
			Return(&scanner.FetchResult{}, nil)

		snapshot, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex})
		require.NoError(t, err)
		assert.Empty(t, snapshot.Holders)
		assert.True(t, snapshot.Complete)
	})

	t.Run("inverted range is clamped", func(t *testing.T) {
		m, svc := setupService(t, false)
		defer m.ctrl.Finish()
		ctx := context.Background()

		m.fetcher.EXPECT().
			Fetch(ctx, scanner.LogQuery{Address: contract, FromBlock: 100, ToBlock: 100}).
			Return(&scanner.FetchResult{}, nil)

		snapshot, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, FromBlock: ptr(500), ToBlock: ptr(100)})
		require.NoError(t, err)
		assert.Equal(t, uint64(100), snapshot.FromBlock)
	})

	t.Run("store failure falls back to default", func(t *testing.T) {
		m, svc := setupService(t, true)
		defer m.ctrl.Finish()
		ctx := context.Background()

		m.store.EXPECT().GetStartBlock(ctx, gomock.Any(), gomock.Any()).Return(uint64(0), false, errors.New("db down"))
		m.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis down"))
		m.fetcher.EXPECT().
			Fetch(ctx, scanner.LogQuery{Address: contract, FromBlock: 7, ToBlock: 50}).
			Return(&scanner.FetchResult{}, nil)
		m.store.EXPECT().SaveSnapshot(ctx, gomock.Any()).Return(nil)
		m.cache.EXPECT().Set(ctx, gomock.Any(), gomock.Any()).Return(nil)
		m.publisher.EXPECT().PublishSnapshot(ctx, gomock.Any()).Return(nil)

		_, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, ToBlock: ptr(50)})
		require.NoError(t, err)
	})

	t.Run("head failure is an error", func(t *testing.T) {
		m, svc := setupService(t, false)
		defer m.ctrl.Finish()
		ctx := context.Background()

		m.head.EXPECT().GetSafeBlock(ctx).Return(uint64(0), errors.New("no provider"))
		_, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex})
		assert.ErrorContains(t, err, "failed to resolve chain head")
	})
}

func TestFetchTopHolders_Canceled(t *testing.T) {
	m, svc := setupService(t, false)
	defer m.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&scanner.FetchResult{}, context.Canceled)
	_, err := svc.FetchTopHolders(ctx, holders.Request{Contract: contractHex, FromBlock: ptr(0), ToBlock: ptr(10)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchTopHoldersBatch(t *testing.T) {
	m, svc := setupService(t, false)
	defer m.ctrl.Finish()
	ctx := context.Background()

	other := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	m.fetcher.EXPECT().Fetch(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, q scanner.LogQuery) (*scanner.FetchResult, error) {
		value := int64(5)
		if q.Address == other {
			value = 9
		}
		return &scanner.FetchResult{Logs: []types.Log{transferLog(zero, holderA, value, q.FromBlock, 0)}}, nil
	}).Times(2)

	reqs := []holders.Request{
		{Contract: contractHex, FromBlock: ptr(1), ToBlock: ptr(10)},
		{Contract: "not-an-address"},
		{Contract: other.Hex(), FromBlock: ptr(1), ToBlock: ptr(10)},
	}
	results := svc.FetchTopHoldersBatch(ctx, reqs)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "5", results[0].Snapshot.Holders[0].Balance)

	assert.ErrorIs(t, results[1].Err, domain.ErrInvalidAddress)
	assert.Nil(t, results[1].Snapshot)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "9", results[2].Snapshot.Holders[0].Balance)
	assert.Equal(t, reqs[2], results[2].Request)
}

func TestSetStartBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("without store", func(t *testing.T) {
		_, svc := setupService(t, false)
		assert.ErrorIs(t, svc.SetStartBlock(ctx, contractHex, 1), domain.ErrStoreNotConfigured)
	})

	t.Run("stores checksummed address", func(t *testing.T) {
		m, svc := setupService(t, true)
		defer m.ctrl.Finish()

		m.store.EXPECT().SetStartBlock(ctx, domain.ChainEthereumMainnet, contract.Hex(), uint64(12_000_000)).Return(nil)
		assert.NoError(t, svc.SetStartBlock(ctx, contractHex, 12_000_000))
	})

	t.Run("invalid address", func(t *testing.T) {
		_, svc := setupService(t, true)
		assert.ErrorIs(t, svc.SetStartBlock(ctx, "0xzz", 1), domain.ErrInvalidAddress)
	})
}

func TestGetLatestSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("without store", func(t *testing.T) {
		_, svc := setupService(t, false)
		_, err := svc.GetLatestSnapshot(ctx, contractHex)
		assert.ErrorIs(t, err, domain.ErrStoreNotConfigured)
	})

	t.Run("delegates to store", func(t *testing.T) {
		m, svc := setupService(t, true)
		defer m.ctrl.Finish()

		want := &domain.HolderSnapshot{ID: "x"}
		m.store.EXPECT().GetLatestSnapshot(ctx, domain.ChainEthereumMainnet, contract.Hex()).Return(want, nil)
		got, err := svc.GetLatestSnapshot(ctx, contractHex)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})
}
