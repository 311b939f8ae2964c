package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainBaseMainnet     Chain = "eip155:8453"
	ChainBaseSepolia     Chain = "eip155:84532"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia ||
		chain == ChainBaseMainnet ||
		chain == ChainBaseSepolia
}

// Name returns the short chain name used in message subjects and cache keys
func (c Chain) Name() string {
	switch c {
	case ChainEthereumMainnet:
		return "ethereum"
	case ChainEthereumSepolia:
		return "sepolia"
	case ChainBaseMainnet:
		return "base"
	case ChainBaseSepolia:
		return "base-sepolia"
	default:
		return strings.ReplaceAll(string(c), ":", "-")
	}
}

// ScanDirection is the order in which a block range is walked
type ScanDirection string

const (
	ScanDirectionDesc ScanDirection = "desc"
	ScanDirectionAsc  ScanDirection = "asc"
)

// BlockRange is an inclusive block interval
type BlockRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Size returns the number of blocks covered by the range
func (r BlockRange) Size() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// TransferEvent is a decoded Transfer(address,address,uint256) log
type TransferEvent struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	BlockNumber uint64
	LogIndex    uint
	TxHash      common.Hash
}

// HolderBalance is a single holder entry of a snapshot
type HolderBalance struct {
	Address string `json:"address"`
	Balance string `json:"balance"` // decimal string, up to 78 digits
}

// HolderSnapshot is the point-in-time holder list reconstructed from transfer events
type HolderSnapshot struct {
	ID              string          `json:"id"`
	Chain           Chain           `json:"chain"`
	ContractAddress string          `json:"contract_address"`
	FromBlock       uint64          `json:"from_block"`
	ToBlock         uint64          `json:"to_block"`
	TopN            int             `json:"top_n"`
	Holders         []HolderBalance `json:"holders"`
	HolderCount     int             `json:"holder_count"`     // holders with a non-zero balance, before truncation
	TransferCount   int             `json:"transfer_count"`   // decoded transfer events folded into the balances
	ClampedDebits   int             `json:"clamped_debits"`   // holders whose known debits exceed their known credits
	SkippedRanges   []BlockRange    `json:"skipped_ranges"`   // sub-ranges that could not be fetched
	Complete        bool            `json:"complete"`         // true when no sub-range was skipped
	ScannedAt       time.Time       `json:"scanned_at"`
}

// NormalizeAddress returns the checksummed form of a hex address
// or an error when the input is not a valid address
func NormalizeAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}
