package ethereum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

// jsonRPCError mimics the error a go-ethereum client returns for a JSON-RPC error response
type jsonRPCError struct {
	code int
	msg  string
}

func (e *jsonRPCError) Error() string  { return e.msg }
func (e *jsonRPCError) ErrorCode() int { return e.code }

var _ rpc.Error = (*jsonRPCError)(nil)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ErrorKindNone},
		{name: "geth result limit", err: &jsonRPCError{code: -32005, msg: "query returned more than 10000 results"}, want: ErrorKindRange},
		{name: "quicknode range limit", err: &jsonRPCError{code: -32614, msg: "eth_getLogs is limited to a 10,000 range"}, want: ErrorKindRange},
		{name: "alchemy response size", err: &jsonRPCError{code: -32602, msg: "Log response size exceeded. You can make eth_getLogs requests with up to a 2K block range"}, want: ErrorKindRange},
		{name: "invalid params without range hint", err: &jsonRPCError{code: -32602, msg: "invalid argument 0: hex string without 0x prefix"}, want: ErrorKindUnrecoverable},
		{name: "pruned history", err: errors.New("missing trie node 0xabc (path ) state is not available"), want: ErrorKindRange},
		{name: "history pruned message", err: &jsonRPCError{code: -32000, msg: "History has been pruned for this block"}, want: ErrorKindRange},
		{name: "wrapped range error", err: fmt.Errorf("chunk failed: %w", &jsonRPCError{code: -32005, msg: "limit exceeded"}), want: ErrorKindRange},
		{name: "payload too large", err: rpc.HTTPError{StatusCode: http.StatusRequestEntityTooLarge, Status: "413"}, want: ErrorKindRange},
		{name: "query timeout", err: fmt.Errorf("%w after 30s", ErrQueryTimeout), want: ErrorKindRange},
		{name: "unauthorized", err: rpc.HTTPError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}, want: ErrorKindUnrecoverable},
		{name: "network", err: errors.New("dial tcp 10.0.0.1:8545: connect: connection refused"), want: ErrorKindUnrecoverable},
		{name: "canceled", err: context.Canceled, want: ErrorKindUnrecoverable},
		{name: "throttled with limit exceeded code", err: &jsonRPCError{code: -32005, msg: "daily request count exceeded, request rate limited"}, want: ErrorKindUnrecoverable},
		{name: "http 429", err: rpc.HTTPError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}, want: ErrorKindUnrecoverable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
			assert.Equal(t, tt.want == ErrorKindRange, IsRangeError(tt.err))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(rpc.HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRateLimited(&jsonRPCError{code: 429, msg: "slow down"}))
	assert.True(t, isRateLimited(errors.New("Your app has exceeded its compute units per second capacity; rate limit")))
	assert.True(t, isRateLimited(&jsonRPCError{code: -32005, msg: "daily request count exceeded, request rate limited"}))
	assert.False(t, isRateLimited(nil))
	assert.False(t, isRateLimited(&jsonRPCError{code: -32005, msg: "query returned more than 10000 results"}))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "none", ErrorKindNone.String())
	assert.Equal(t, "range", ErrorKindRange.String())
	assert.Equal(t, "unrecoverable", ErrorKindUnrecoverable.String())
}
