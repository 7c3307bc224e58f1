// Package plancache keeps the last reconciled plan per year for the life of the process.
package plancache

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// Cache is a concurrent-safe year -> CacheEntry map. Entries never expire; they are
// replaced by Put, edited by PatchItem, or dropped by Invalidate.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*model.CacheEntry
	hits    atomic.Int64
	misses  atomic.Int64
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries int      `json:"entries"`
	Years   []string `json:"years"`
	Hits    int64    `json:"hits"`
	Misses  int64    `json:"misses"`
	HitRate float64  `json:"hit_rate"`
}

// ItemPatch lists the item fields a write may change. Nil fields are left alone. The
// Clear flags reset their fields before the non-nil fields are applied.
type ItemPatch struct {
	ClearCaseData  bool
	ClearExecution bool

	CaseProtocol     *string
	CaseData         *model.CaseData
	ExecutedValue    *decimal.Decimal
	CommittedValue   *decimal.Decimal
	ExecutionRecord  *model.ExecutionRecord
	TeamMembers      *[]string
	TeamIdentified   *bool
	DFDNumber        *string
	FutureContractID *string
	ItemStatus       *string
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*model.CacheEntry)}
}

// Has reports whether year is cached. It does not count toward hit statistics.
func (c *Cache) Has(year string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[year]
	return ok
}

// Get returns a copy of the entry for year.
func (c *Cache) Get(year string) (*model.CacheEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[year]
	var out *model.CacheEntry
	if ok {
		out = cloneEntry(e)
	}
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return out, true
}

// Put stores a copy of entry for year, replacing any previous entry.
func (c *Cache) Put(year string, entry *model.CacheEntry) {
	if entry == nil {
		return
	}
	e := cloneEntry(entry)
	e.Year = year

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[year] = e
}

// PatchItem merges the non-nil fields of p into item id of year. It reports whether an
// item was patched; an unknown year or id is a no-op.
func (c *Cache) PatchItem(year, id string, p ItemPatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[year]
	if !ok {
		return false
	}
	for i := range e.Items {
		if e.Items[i].ID != id {
			continue
		}
		// Copy-on-write: copies handed out by Get share the old backing array.
		items := make([]model.PlanItem, len(e.Items))
		copy(items, e.Items)
		applyPatch(&items[i], p)
		e.Items = items
		return true
	}
	return false
}

// Invalidate drops the entry for year.
func (c *Cache) Invalidate(year string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, year)
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	years := make([]string, 0, len(c.entries))
	for y := range c.entries {
		years = append(years, y)
	}
	c.mu.RUnlock()
	sort.Strings(years)

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Entries: len(years), Years: years, Hits: hits, Misses: misses, HitRate: rate}
}

func applyPatch(it *model.PlanItem, p ItemPatch) {
	if p.ClearCaseData {
		it.CaseData = nil
	}
	if p.ClearExecution {
		it.CommittedValue = decimal.Zero
		it.ExecutionRecord = nil
	}
	if p.CaseProtocol != nil {
		it.CaseProtocol = *p.CaseProtocol
	}
	if p.CaseData != nil {
		cd := *p.CaseData
		it.CaseData = &cd
	}
	if p.ExecutedValue != nil {
		it.ExecutedValue = *p.ExecutedValue
	}
	if p.CommittedValue != nil {
		it.CommittedValue = *p.CommittedValue
	}
	if p.ExecutionRecord != nil {
		rec := *p.ExecutionRecord
		it.ExecutionRecord = &rec
	}
	if p.TeamMembers != nil {
		it.TeamMembers = append([]string(nil), (*p.TeamMembers)...)
	}
	if p.TeamIdentified != nil {
		it.TeamIdentified = *p.TeamIdentified
	}
	if p.DFDNumber != nil {
		it.DFDNumber = *p.DFDNumber
	}
	if p.FutureContractID != nil {
		it.FutureContractID = *p.FutureContractID
	}
	if p.ItemStatus != nil {
		it.ItemStatus = *p.ItemStatus
	}
}

// cloneEntry copies the entry and its item slice. Items themselves are values; their
// pointer fields are never mutated in place, so they can be shared.
func cloneEntry(e *model.CacheEntry) *model.CacheEntry {
	out := *e
	out.Items = make([]model.PlanItem, len(e.Items))
	copy(out.Items, e.Items)
	if e.Metadata != nil {
		md := *e.Metadata
		out.Metadata = &md
	}
	return &out
}
