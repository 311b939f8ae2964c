package transfer

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// Transfer(address indexed from, address indexed to, uint256 value)
const transferEventABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var (
	// TransferTopic is topic[0] of every Transfer(address,address,uint256) log.
	// The signature is shared by ERC20 and ERC721.
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// ErrNotTransfer is returned for logs that carry another event signature
	ErrNotTransfer = errors.New("not a transfer event")

	// ErrMalformed is returned for Transfer logs whose topics or data cannot be decoded
	ErrMalformed = errors.New("malformed transfer event")

	transferABI = mustParseABI(transferEventABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid transfer ABI: %v", err))
	}
	return parsed
}

// Decode decodes a raw log into a transfer event.
//
// ERC20 transfers have 3 topics (signature, from, to) with the value in data.
// ERC721 transfers have 4 topics (signature, from, to, tokenId) and move exactly one token.
func Decode(vLog types.Log) (*domain.TransferEvent, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != TransferTopic {
		return nil, ErrNotTransfer
	}
	if vLog.Removed {
		return nil, fmt.Errorf("%w: log removed by reorg", ErrMalformed)
	}

	var value *big.Int
	switch len(vLog.Topics) {
	case 3:
		values, err := transferABI.Unpack("Transfer", vLog.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: expected 1 data value, got %d", ErrMalformed, len(values))
		}
		v, ok := values[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected value type %T", ErrMalformed, values[0])
		}
		value = v
	case 4:
		value = big.NewInt(1)
	default:
		return nil, fmt.Errorf("%w: expected 3 or 4 topics, got %d", ErrMalformed, len(vLog.Topics))
	}

	from, err := topicAddress(vLog.Topics[1])
	if err != nil {
		return nil, fmt.Errorf("%w: from topic: %v", ErrMalformed, err)
	}
	to, err := topicAddress(vLog.Topics[2])
	if err != nil {
		return nil, fmt.Errorf("%w: to topic: %v", ErrMalformed, err)
	}

	return &domain.TransferEvent{
		From:        from,
		To:          to,
		Value:       value,
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,
		TxHash:      vLog.TxHash,
	}, nil
}

// topicAddress reads an indexed address; the 12 padding bytes must be zero
func topicAddress(topic common.Hash) (common.Address, error) {
	padding := common.HashLength - common.AddressLength
	for _, b := range topic[:padding] {
		if b != 0 {
			return common.Address{}, fmt.Errorf("non-zero address padding in %s", topic.Hex())
		}
	}
	return common.BytesToAddress(topic[padding:]), nil
}

// DecodeAll decodes every transfer log and returns the events ordered by
// (blockNumber, logIndex) together with the number of dropped logs.
func DecodeAll(logs []types.Log) ([]domain.TransferEvent, int) {
	events := make([]domain.TransferEvent, 0, len(logs))
	dropped := 0
	for _, vLog := range logs {
		event, err := Decode(vLog)
		if err != nil {
			dropped++
			logger.Debug("Dropping log",
				zap.Error(err),
				zap.String("txHash", vLog.TxHash.Hex()),
				zap.Uint64("blockNumber", vLog.BlockNumber))
			continue
		}
		events = append(events, *event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, dropped
}
