package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// Holder scan defaults
	DEFAULT_CHUNK_SIZE     uint64 = 4000
	DEFAULT_MIN_CHUNK_SIZE uint64 = 512
	DEFAULT_MAX_CHUNK_SIZE uint64 = 16000
	DEFAULT_GROW_AFTER            = 3 // consecutive successful chunks before doubling
	DEFAULT_TOP_N                 = 100
	MAX_TOP_N                     = 1000
)
