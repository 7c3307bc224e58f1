package plancache

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

func entry(ids ...string) *model.CacheEntry {
	e := &model.CacheEntry{LastSyncLabel: "Snapshot Local (20/03/2026)", Source: model.SourceSnapshot}
	for _, id := range ids {
		e.Items = append(e.Items, model.PlanItem{ID: id, Title: "item " + id})
	}
	return e
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New()
	assert.False(t, c.Has("2026"))

	in := entry("1", "2")
	c.Put("2026", in)
	assert.True(t, c.Has("2026"))

	got, ok := c.Get("2026")
	require.True(t, ok)
	assert.Equal(t, "2026", got.Year)
	assert.Equal(t, in.Items, got.Items)
	assert.Equal(t, in.LastSyncLabel, got.LastSyncLabel)
}

func TestGet_Miss(t *testing.T) {
	c := New()
	got, ok := c.Get("2025")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := New()
	c.Put("2026", entry("1"))

	got, _ := c.Get("2026")
	got.Items[0].Title = "mutated"
	got.Items = append(got.Items, model.PlanItem{ID: "x"})

	again, _ := c.Get("2026")
	assert.Equal(t, "item 1", again.Items[0].Title)
	assert.Len(t, again.Items, 1)
}

func TestPut_StoresCopy(t *testing.T) {
	c := New()
	in := entry("1")
	c.Put("2026", in)
	in.Items[0].Title = "mutated"

	got, _ := c.Get("2026")
	assert.Equal(t, "item 1", got.Items[0].Title)
}

func TestPatchItem(t *testing.T) {
	c := New()
	c.Put("2026", entry("1", "2"))
	before, _ := c.Get("2026")

	team := []string{"Ana"}
	ok := c.PatchItem("2026", "2", ItemPatch{
		CaseProtocol:   model.Ptr("23543.000123/2026"),
		ItemStatus:     model.Ptr(model.ItemStatusInProcess),
		TeamMembers:    &team,
		TeamIdentified: model.Ptr(true),
		ExecutedValue:  model.Ptr(decimal.NewFromInt(10)),
	})
	require.True(t, ok)

	got, _ := c.Get("2026")
	assert.Equal(t, "23543.000123/2026", got.Items[1].CaseProtocol)
	assert.Equal(t, model.ItemStatusInProcess, got.Items[1].ItemStatus)
	assert.Equal(t, []string{"Ana"}, got.Items[1].TeamMembers)
	assert.True(t, got.Items[1].TeamIdentified)
	assert.Equal(t, "item 2", got.Items[1].Title, "untouched fields kept")
	assert.Empty(t, got.Items[0].CaseProtocol)

	assert.Empty(t, before.Items[1].CaseProtocol, "earlier copies unaffected")
}

func TestPatchItem_ClearFlags(t *testing.T) {
	c := New()
	in := entry("1")
	in.Items[0].CaseData = &model.CaseData{Status: "ATIVO"}
	in.Items[0].ExecutionRecord = &model.ExecutionRecord{ProcessIdentifier: "111/2026"}
	in.Items[0].CommittedValue = decimal.NewFromInt(4800)
	c.Put("2026", in)

	require.True(t, c.PatchItem("2026", "1", ItemPatch{ClearCaseData: true, ClearExecution: true}))
	got, _ := c.Get("2026")
	assert.Nil(t, got.Items[0].CaseData)
	assert.Nil(t, got.Items[0].ExecutionRecord)
	assert.True(t, got.Items[0].CommittedValue.IsZero())

	// Non-nil fields win over the clear.
	exec := &model.ExecutionRecord{ProcessIdentifier: "222/2026"}
	require.True(t, c.PatchItem("2026", "1", ItemPatch{
		ClearExecution:  true,
		ExecutionRecord: exec,
		CommittedValue:  model.Ptr(decimal.NewFromInt(10)),
	}))
	got, _ = c.Get("2026")
	require.NotNil(t, got.Items[0].ExecutionRecord)
	assert.Equal(t, "222/2026", got.Items[0].ExecutionRecord.ProcessIdentifier)
	assert.True(t, got.Items[0].CommittedValue.Equal(decimal.NewFromInt(10)))
}

func TestPatchItem_UnknownIsNoop(t *testing.T) {
	c := New()
	assert.False(t, c.PatchItem("2026", "1", ItemPatch{CaseProtocol: model.Ptr("x")}))
	assert.False(t, c.Has("2026"))

	c.Put("2026", entry("1"))
	assert.False(t, c.PatchItem("2026", "nope", ItemPatch{CaseProtocol: model.Ptr("x")}))

	got, _ := c.Get("2026")
	require.Len(t, got.Items, 1)
	assert.Empty(t, got.Items[0].CaseProtocol)
}

func TestInvalidateAndStats(t *testing.T) {
	c := New()
	c.Put("2026", entry("1"))
	c.Put("2025", entry())

	c.Get("2026")
	c.Get("2024")

	s := c.Stats()
	assert.Equal(t, 2, s.Entries)
	assert.Equal(t, []string{"2025", "2026"}, s.Years)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 0.001)

	c.Invalidate("2026")
	assert.False(t, c.Has("2026"))
	assert.Equal(t, 1, c.Stats().Entries)

	got, ok := c.Get("2025")
	require.True(t, ok)
	assert.NotNil(t, got.Items)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	c.Put("2026", entry("1", "2", "3"))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.PatchItem("2026", "2", ItemPatch{DFDNumber: model.Ptr("9/2026")})
				return
			}
			if e, ok := c.Get("2026"); ok {
				_ = len(e.Items)
			}
		}(i)
	}
	wg.Wait()

	got, _ := c.Get("2026")
	assert.Equal(t, "9/2026", got.Items[1].DFDNumber)
}
