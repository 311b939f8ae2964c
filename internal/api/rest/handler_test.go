package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-holder-indexer/internal/api/middleware"
	"github.com/feral-file/ff-holder-indexer/internal/api/rest"
	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/holders"
	"github.com/feral-file/ff-holder-indexer/internal/mocks"
)

const (
	contract = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	apiKey   = "test-key"
)

func setupRouter(t *testing.T) (*mocks.MockHoldersService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockHoldersService(ctrl)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(svc), middleware.AuthConfig{APIKeys: []string{apiKey}})
	return svc, router
}

func serve(router *gin.Engine, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authorized {
		req.Header.Set("Authorization", "ApiKey "+apiKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHealthCheck(t *testing.T) {
	_, router := setupRouter(t)

	w := serve(router, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetTopHolders(t *testing.T) {
	t.Run("passes bounds and limit", func(t *testing.T) {
		svc, router := setupRouter(t)

		snapshot := &domain.HolderSnapshot{
			ID:              "01J0000000000000000000000",
			ContractAddress: contract,
			Holders:         []domain.HolderBalance{{Address: "0xA", Balance: "60"}},
			SkippedRanges:   []domain.BlockRange{},
			Complete:        true,
		}
		svc.EXPECT().
			FetchTopHolders(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req holders.Request) (*domain.HolderSnapshot, error) {
				assert.Equal(t, contract, req.Contract)
				require.NotNil(t, req.FromBlock)
				require.NotNil(t, req.ToBlock)
				assert.Equal(t, uint64(100), *req.FromBlock)
				assert.Equal(t, uint64(200), *req.ToBlock)
				assert.Equal(t, 5, req.TopN)
				return snapshot, nil
			})

		w := serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders?from_block=100&to_block=200&limit=5", contract), "", false)
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.HolderSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, snapshot.Holders, got.Holders)
		assert.True(t, got.Complete)
	})

	t.Run("defaults leave bounds unset", func(t *testing.T) {
		svc, router := setupRouter(t)

		svc.EXPECT().
			FetchTopHolders(gomock.Any(), holders.Request{Contract: contract}).
			Return(&domain.HolderSnapshot{}, nil)

		w := serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders", contract), "", false)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("inverted bounds reach the service", func(t *testing.T) {
		svc, router := setupRouter(t)

		from, to := uint64(500), uint64(100)
		svc.EXPECT().
			FetchTopHolders(gomock.Any(), holders.Request{Contract: contract, FromBlock: &from, ToBlock: &to}).
			Return(&domain.HolderSnapshot{FromBlock: to, ToBlock: to, Complete: true}, nil)

		w := serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders?from_block=500&to_block=100", contract), "", false)
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.HolderSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, uint64(100), got.FromBlock)
		assert.Equal(t, uint64(100), got.ToBlock)
	})

	t.Run("rejects bad query", func(t *testing.T) {
		_, router := setupRouter(t)

		for _, query := range []string{"from_block=abc", "limit=-1", "limit=1001"} {
			w := serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders?%s", contract, query), "", false)
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
			assert.Equal(t, "validation_failed", errorCode(t, w), query)
		}
	})

	t.Run("maps service errors", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: 0x1", domain.ErrInvalidAddress), http.StatusBadRequest, "validation_failed"},
			{fmt.Errorf("holder scan interrupted: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}

		for _, tt := range tests {
			svc, router := setupRouter(t)
			svc.EXPECT().FetchTopHolders(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := serve(router, http.MethodGet, "/api/v1/contracts/0x1/holders", "", false)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		}
	})
}

func TestGetLatestSnapshot(t *testing.T) {
	svc, router := setupRouter(t)

	svc.EXPECT().GetLatestSnapshot(gomock.Any(), contract).Return(nil, domain.ErrSnapshotNotFound)
	w := serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders/latest", contract), "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.EXPECT().GetLatestSnapshot(gomock.Any(), contract).Return(nil, domain.ErrStoreNotConfigured)
	w = serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders/latest", contract), "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	svc.EXPECT().GetLatestSnapshot(gomock.Any(), contract).Return(&domain.HolderSnapshot{ID: "abc"}, nil)
	w = serve(router, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%s/holders/latest", contract), "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"abc"`)
}

func TestSetStartBlock(t *testing.T) {
	target := fmt.Sprintf("/api/v1/contracts/%s/start-block", contract)

	t.Run("requires api key", func(t *testing.T) {
		_, router := setupRouter(t)
		w := serve(router, http.MethodPost, target, `{"block_number":1}`, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requires block number", func(t *testing.T) {
		_, router := setupRouter(t)
		w := serve(router, http.MethodPost, target, `{}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", errorCode(t, w))
	})

	t.Run("accepts block zero", func(t *testing.T) {
		svc, router := setupRouter(t)
		svc.EXPECT().SetStartBlock(gomock.Any(), contract, uint64(0)).Return(nil)

		w := serve(router, http.MethodPost, target, `{"block_number":0}`, true)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"block_number":0`)
	})
}

func TestBatchTopHolders(t *testing.T) {
	t.Run("returns results in request order", func(t *testing.T) {
		svc, router := setupRouter(t)

		svc.EXPECT().
			FetchTopHoldersBatch(gomock.Any(), gomock.Len(2)).
			DoAndReturn(func(_ context.Context, reqs []holders.Request) []holders.BatchResult {
				assert.Equal(t, 3, reqs[0].TopN)
				return []holders.BatchResult{
					{Request: reqs[0], Snapshot: &domain.HolderSnapshot{ID: "first"}},
					{Request: reqs[1], Err: domain.ErrInvalidAddress},
				}
			})

		body := fmt.Sprintf(`{"contracts":[{"address":%q,"limit":3},{"address":"0x1"}]}`, contract)
		w := serve(router, http.MethodPost, "/api/v1/holders/batch", body, true)
		require.Equal(t, http.StatusOK, w.Code)

		var got struct {
			Results []rest.BatchHoldersResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got.Results, 2)
		assert.Equal(t, contract, got.Results[0].Address)
		assert.Equal(t, "first", got.Results[0].Snapshot.ID)
		assert.Empty(t, got.Results[0].Error)
		assert.Equal(t, "0x1", got.Results[1].Address)
		assert.Nil(t, got.Results[1].Snapshot)
		assert.Equal(t, domain.ErrInvalidAddress.Error(), got.Results[1].Error)
	})

	t.Run("rejects empty and oversized batches", func(t *testing.T) {
		_, router := setupRouter(t)

		w := serve(router, http.MethodPost, "/api/v1/holders/batch", `{"contracts":[]}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		items := make([]string, rest.MAX_BATCH_SIZE+1)
		for i := range items {
			items[i] = fmt.Sprintf(`{"address":%q}`, contract)
		}
		w = serve(router, http.MethodPost, "/api/v1/holders/batch", `{"contracts":[`+strings.Join(items, ",")+`]}`, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_failed", errorCode(t, w))
	})
}
