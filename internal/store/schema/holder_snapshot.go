package schema

import (
	"time"

	"gorm.io/datatypes"
)

// HolderSnapshot represents the holder_snapshots table - one row per finished holder scan
type HolderSnapshot struct {
	// ID is the ULID of the snapshot, sortable by creation time
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Chain is the CAIP-2 chain identifier
	Chain string `gorm:"column:chain;not null;type:text;index:idx_holder_snapshots_lookup,priority:1"`
	// ContractAddress is the checksummed token contract address
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index:idx_holder_snapshots_lookup,priority:2"`
	// FromBlock and ToBlock are the inclusive scanned range
	FromBlock uint64 `gorm:"column:from_block;not null;type:bigint"`
	ToBlock   uint64 `gorm:"column:to_block;not null;type:bigint"`
	// TopN is the requested holder limit
	TopN int `gorm:"column:top_n;not null"`
	// Holders is the ordered holder list as JSON [{address, balance}]
	Holders datatypes.JSON `gorm:"column:holders;not null;type:jsonb"`
	HolderCount   int `gorm:"column:holder_count;not null"`
	TransferCount int `gorm:"column:transfer_count;not null"`
	ClampedDebits int `gorm:"column:clamped_debits;not null;default:0"`
	// SkippedRanges is the JSON list of block ranges that could not be fetched
	SkippedRanges datatypes.JSON `gorm:"column:skipped_ranges;not null;type:jsonb"`
	Complete      bool           `gorm:"column:complete;not null"`
	// ScannedAt is when the scan finished
	ScannedAt time.Time `gorm:"column:scanned_at;not null;type:timestamptz;index:idx_holder_snapshots_lookup,priority:3,sort:desc"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the HolderSnapshot model
func (HolderSnapshot) TableName() string {
	return "holder_snapshots"
}
