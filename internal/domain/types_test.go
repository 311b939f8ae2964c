package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidChain(t *testing.T) {
	tests := []struct {
		chain Chain
		want  bool
	}{
		{ChainEthereumMainnet, true},
		{ChainEthereumSepolia, true},
		{ChainBaseMainnet, true},
		{ChainBaseSepolia, true},
		{Chain("tezos:mainnet"), false},
		{Chain(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.chain), func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidChain(tt.chain))
		})
	}
}

func TestChain_Name(t *testing.T) {
	assert.Equal(t, "ethereum", ChainEthereumMainnet.Name())
	assert.Equal(t, "base", ChainBaseMainnet.Name())
	assert.Equal(t, "eip155-10", Chain("eip155:10").Name())
}

func TestBlockRange_Size(t *testing.T) {
	assert.Equal(t, uint64(4000), BlockRange{Start: 6001, End: 10000}.Size())
	assert.Equal(t, uint64(1), BlockRange{Start: 7, End: 7}.Size())
	assert.Equal(t, uint64(0), BlockRange{Start: 8, End: 7}.Size())
	assert.Equal(t, "[0,2000]", BlockRange{Start: 0, End: 2000}.String())
}

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr.Hex())

	_, err = NormalizeAddress("0x1234")
	assert.True(t, errors.Is(err, ErrInvalidAddress))

	_, err = NormalizeAddress("not-an-address")
	assert.True(t, errors.Is(err, ErrInvalidAddress))
}
