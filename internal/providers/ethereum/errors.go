package ethereum

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind classifies a failed eth_getLogs call
type ErrorKind int

const (
	// ErrorKindNone means there was no error
	ErrorKindNone ErrorKind = iota
	// ErrorKindRange means the provider rejected the block span or result size,
	// or the range touches pruned history. A smaller range may succeed.
	ErrorKindRange
	// ErrorKindUnrecoverable covers every other failure (network, auth, malformed response)
	ErrorKindUnrecoverable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindRange:
		return "range"
	default:
		return "unrecoverable"
	}
}

// JSON-RPC codes providers use for oversized log queries
const (
	codeLimitExceeded = -32005 // geth "query returned more than 10000 results"; Infura also throttles with it
	codeInvalidParams = -32602 // Alchemy "Log response size exceeded", block range errors
	codeRangeLimit    = -32614 // QuickNode-style "eth_getLogs is limited to a N range"
	codeTooManyReq    = 429
)

// rangeErrorMessages are lower-cased substrings that identify range/size/pruning rejections
var rangeErrorMessages = []string{
	"query returned more than",
	"too many results",
	"exceeded maximum",
	"query timeout exceeded",
	"log response size exceeded",
	"response size exceeded",
	"block range",
	"range too large",
	"range is too large",
	"range too wide",
	"limited to a",
	"exceed maximum block range",
	"max block range",
	"pruned",
	"history has been pruned",
	"missing trie node",
	"header not found",
}

// rateLimitMessages identify transient throttling that is worth retrying as is
var rateLimitMessages = []string{
	"rate limit",
	"too many requests",
	"request limit",
	"capacity exceeded",
}

// ClassifyError maps an eth_getLogs error to an ErrorKind
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindUnrecoverable
	}
	// throttling shares -32005 with result limits on some providers; a smaller range does not help
	if isRateLimited(err) {
		return ErrorKindUnrecoverable
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeLimitExceeded, codeRangeLimit:
			return ErrorKindRange
		case codeInvalidParams:
			if containsAny(rpcErr.Error(), rangeErrorMessages) {
				return ErrorKindRange
			}
			return ErrorKindUnrecoverable
		}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusRequestEntityTooLarge {
		return ErrorKindRange
	}

	if containsAny(err.Error(), rangeErrorMessages) {
		return ErrorKindRange
	}

	return ErrorKindUnrecoverable
}

// IsRangeError reports whether a smaller block range may succeed
func IsRangeError(err error) bool {
	return ClassifyError(err) == ErrorKindRange
}

// isRateLimited reports whether the provider throttled the request
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeTooManyReq {
		return true
	}

	return containsAny(err.Error(), rateLimitMessages)
}

func containsAny(s string, substrings []string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
