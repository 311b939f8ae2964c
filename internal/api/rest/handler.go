package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/holders"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// Handler defines the REST API handlers
type Handler interface {
	// GetTopHolders scans a contract and returns its top holders
	// GET /api/v1/contracts/:address/holders?from_block=<n>&to_block=<n>&limit=<n>
	GetTopHolders(c *gin.Context)

	// GetLatestSnapshot returns the last stored snapshot of a contract
	// GET /api/v1/contracts/:address/holders/latest
	GetLatestSnapshot(c *gin.Context)

	// SetStartBlock registers the default lower scan bound of a contract (requires API key)
	// POST /api/v1/contracts/:address/start-block
	SetStartBlock(c *gin.Context)

	// BatchTopHolders scans several contracts concurrently (requires API key)
	// POST /api/v1/holders/batch
	BatchTopHolders(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

type handler struct {
	service holders.Service
}

// NewHandler creates a new REST API handler
func NewHandler(service holders.Service) Handler {
	return &handler{service: service}
}

func (h *handler) GetTopHolders(c *gin.Context) {
	address := c.Param("address")

	params, err := ParseTopHoldersQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	snapshot, err := h.service.FetchTopHolders(c.Request.Context(), holders.Request{
		Contract:  address,
		FromBlock: params.FromBlock,
		ToBlock:   params.ToBlock,
		TopN:      params.Limit,
	})
	if err != nil {
		respondServiceError(c, err, zap.String("contract", address))
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *handler) GetLatestSnapshot(c *gin.Context) {
	address := c.Param("address")

	snapshot, err := h.service.GetLatestSnapshot(c.Request.Context(), address)
	if err != nil {
		respondServiceError(c, err, zap.String("contract", address))
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *handler) SetStartBlock(c *gin.Context) {
	address := c.Param("address")

	var req StartBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	if err := h.service.SetStartBlock(c.Request.Context(), address, *req.BlockNumber); err != nil {
		respondServiceError(c, err, zap.String("contract", address))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_address": address,
		"block_number":     *req.BlockNumber,
	})
}

func (h *handler) BatchTopHolders(c *gin.Context) {
	var req BatchHoldersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Contracts) > MAX_BATCH_SIZE {
		respondValidationError(c, "too many contracts in one batch")
		return
	}

	reqs := make([]holders.Request, len(req.Contracts))
	for i, item := range req.Contracts {
		reqs[i] = item.toRequest()
	}

	results := h.service.FetchTopHoldersBatch(c.Request.Context(), reqs)

	response := make([]BatchHoldersResult, len(results))
	for i, result := range results {
		response[i] = BatchHoldersResult{
			Address:  result.Request.Contract,
			Snapshot: result.Snapshot,
		}
		if result.Err != nil {
			response[i].Error = result.Err.Error()
			logger.WarnCtx(c.Request.Context(), "Batch holder scan failed",
				zap.String("contract", result.Request.Contract),
				zap.Error(result.Err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": response})
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-holder-indexer",
	})
}
