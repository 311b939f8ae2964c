package balance

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
)

// Accumulator folds transfer events into per-holder balances.
// Zero balances are never kept and the zero address never gets an entry.
//
// Balances are tracked signed so that folding is order independent. A
// negative balance can only come from an incomplete history (skipped
// ranges); it is never visible: Balance, Len and Snapshot clamp it to zero
// and Clamped reports how many holders are affected.
// It is owned by a single scan and is not safe for concurrent use.
type Accumulator struct {
	balances map[common.Address]*big.Int
	applied  int
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{balances: make(map[common.Address]*big.Int)}
}

// Apply debits event.From and credits event.To by event.Value.
// The zero address is the mint/burn sentinel and is never tracked.
func (a *Accumulator) Apply(event domain.TransferEvent) {
	a.applied++
	if event.Value == nil || event.Value.Sign() == 0 {
		return
	}

	if event.From != (common.Address{}) {
		a.add(event.From, new(big.Int).Neg(event.Value))
	}
	if event.To != (common.Address{}) {
		a.add(event.To, event.Value)
	}
}

func (a *Accumulator) add(addr common.Address, delta *big.Int) {
	next := new(big.Int).Set(delta)
	if current, ok := a.balances[addr]; ok {
		next.Add(next, current)
	}
	if next.Sign() == 0 {
		delete(a.balances, addr)
		return
	}
	a.balances[addr] = next
}

// Balance returns the balance of addr, zero when it holds nothing
func (a *Accumulator) Balance(addr common.Address) *big.Int {
	if b, ok := a.balances[addr]; ok && b.Sign() > 0 {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Len returns the number of holders with a positive balance
func (a *Accumulator) Len() int {
	n := 0
	for _, b := range a.balances {
		if b.Sign() > 0 {
			n++
		}
	}
	return n
}

// Applied returns the number of events passed to Apply
func (a *Accumulator) Applied() int {
	return a.applied
}

// Clamped returns the number of addresses whose net flow is negative
func (a *Accumulator) Clamped() int {
	n := 0
	for _, b := range a.balances {
		if b.Sign() < 0 {
			n++
		}
	}
	return n
}

// Snapshot returns the holders sorted by descending balance, ties broken by
// ascending lowercase hex address, truncated to topN (topN <= 0 returns all).
func (a *Accumulator) Snapshot(topN int) []domain.HolderBalance {
	type entry struct {
		key     string
		address common.Address
		balance *big.Int
	}

	entries := make([]entry, 0, len(a.balances))
	for addr, bal := range a.balances {
		if bal.Sign() <= 0 {
			continue
		}
		entries = append(entries, entry{
			key:     strings.ToLower(addr.Hex()),
			address: addr,
			balance: bal,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].balance.Cmp(entries[j].balance); c != 0 {
			return c > 0
		}
		return entries[i].key < entries[j].key
	})

	if topN > 0 && topN < len(entries) {
		entries = entries[:topN]
	}

	holders := make([]domain.HolderBalance, len(entries))
	for i, e := range entries {
		holders[i] = domain.HolderBalance{
			Address: e.address.Hex(),
			Balance: e.balance.String(),
		}
	}
	return holders
}
