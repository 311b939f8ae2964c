package rest

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/holders"
)

// MAX_BATCH_SIZE caps the number of contracts of one batch request
const MAX_BATCH_SIZE = 20

// TopHoldersQueryParams holds query parameters for GET /contracts/:address/holders
type TopHoldersQueryParams struct {
	FromBlock *uint64 `form:"from_block"`
	ToBlock   *uint64 `form:"to_block"`
	Limit     int     `form:"limit,default=0"`
}

// Validate checks the limit. Inverted block bounds are clamped by the service.
func (p *TopHoldersQueryParams) Validate() error {
	if p.Limit < 0 || p.Limit > domain.MAX_TOP_N {
		return fmt.Errorf("limit must be between 1 and %d", domain.MAX_TOP_N)
	}
	return nil
}

// ParseTopHoldersQuery parses query parameters for GET /contracts/:address/holders
func ParseTopHoldersQuery(c *gin.Context) (*TopHoldersQueryParams, error) {
	var params TopHoldersQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return &params, nil
}

// StartBlockRequest is the body of POST /contracts/:address/start-block
type StartBlockRequest struct {
	BlockNumber *uint64 `json:"block_number" binding:"required"`
}

// BatchHoldersRequest is the body of POST /holders/batch
type BatchHoldersRequest struct {
	Contracts []BatchHoldersItem `json:"contracts" binding:"required,min=1,dive"`
}

// BatchHoldersItem is one contract of a batch request
type BatchHoldersItem struct {
	Address   string  `json:"address" binding:"required"`
	FromBlock *uint64 `json:"from_block,omitempty"`
	ToBlock   *uint64 `json:"to_block,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

func (i BatchHoldersItem) toRequest() holders.Request {
	return holders.Request{
		Contract:  i.Address,
		FromBlock: i.FromBlock,
		ToBlock:   i.ToBlock,
		TopN:      i.Limit,
	}
}

// BatchHoldersResult is one entry of a batch response, in request order
type BatchHoldersResult struct {
	Address  string                 `json:"address"`
	Snapshot *domain.HolderSnapshot `json:"snapshot,omitempty"`
	Error    string                 `json:"error,omitempty"`
}
