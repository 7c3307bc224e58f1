package plan

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plancache"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/reconcile"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resolve"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/store"
)

// ErrInvalidInput is returned when a write request fails validation.
var ErrInvalidInput = eris.New("plan: invalid input")

// ErrNoStore is returned by writes when the service has no override store.
var ErrNoStore = eris.New("plan: no override store configured")

// LinkRequest links a plan item to an internal case.
type LinkRequest struct {
	Protocol  string          `json:"protocol"`
	CaseData  *model.CaseData `json:"case_data,omitempty"`
	DFDNumber string          `json:"dfd_number,omitempty"`
}

// ManualItemInput describes an item added by hand to a year's plan.
type ManualItemInput struct {
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Value     decimal.Decimal `json:"value"`
	StartDate string          `json:"start_date,omitempty"`
	EndDate   string          `json:"end_date,omitempty"`
	Area      string          `json:"area,omitempty"`
	Protocol  string          `json:"protocol,omitempty"`
}

// LinkCase records that item id of year is handled by the case req.Protocol and updates the
// cached plan. When an execution registry is configured the matching purchase, if any, is
// attached to the cached item as well.
//
// Linking to a different process drops the previous case snapshot unless req carries a new
// one. The cached execution match is always replaced, by nothing when there is no match.
func (s *Service) LinkCase(ctx context.Context, year, id string, req LinkRequest) error {
	protocol := strings.TrimSpace(req.Protocol)
	if resolve.NormalizeProtocol(protocol) == "" {
		return eris.Wrap(ErrInvalidInput, "protocol must contain digits")
	}
	rec, err := s.baseRecord(ctx, year, id)
	if err != nil {
		return err
	}
	prev := s.linkedProtocol(ctx, rec.Key)
	rec.CaseProtocol = &protocol
	rec.CaseData = req.CaseData
	rec.ClearCaseData = req.CaseData == nil && !resolve.SameProcess(prev, protocol)
	rec.ItemStatus = model.Ptr(model.ItemStatusInProcess)
	if dfd := strings.TrimSpace(req.DFDNumber); dfd != "" {
		rec.DFDNumber = &dfd
	}
	if err := s.merge(ctx, rec); err != nil {
		return err
	}

	patch := plancache.ItemPatch{
		ClearCaseData:  rec.ClearCaseData,
		ClearExecution: true,
		CaseProtocol:   rec.CaseProtocol,
		CaseData:       rec.CaseData,
		ItemStatus:     rec.ItemStatus,
		DFDNumber:      rec.DFDNumber,
	}
	if exec := s.findExecution(ctx, year, protocol); exec != nil {
		patch.ExecutionRecord = exec
		patch.CommittedValue = &exec.HomologatedTotal
	}
	s.cache.PatchItem(year, id, patch)
	return nil
}

// SetTeam records the planning team of item id of year. An empty members list clears it.
func (s *Service) SetTeam(ctx context.Context, year, id string, members []string, identified bool) error {
	team := make([]string, 0, len(members))
	for _, m := range members {
		if m = strings.TrimSpace(m); m != "" {
			team = append(team, m)
		}
	}
	rec, err := s.baseRecord(ctx, year, id)
	if err != nil {
		return err
	}
	rec.TeamMembers = &team
	rec.TeamIdentified = &identified
	if err := s.merge(ctx, rec); err != nil {
		return err
	}
	s.cache.PatchItem(year, id, plancache.ItemPatch{TeamMembers: &team, TeamIdentified: &identified})
	return nil
}

// AddManualItem stores a new manual item for year and returns it. If year is cached, the
// cached entry gains the item.
func (s *Service) AddManualItem(ctx context.Context, year string, in ManualItemInput) (model.PlanItem, error) {
	if strings.TrimSpace(year) == "" {
		return model.PlanItem{}, eris.Wrap(ErrInvalidInput, "year is required")
	}
	if in.Value.IsNegative() {
		return model.PlanItem{}, eris.Wrap(ErrInvalidInput, "value must not be negative")
	}
	if s.store == nil {
		return model.PlanItem{}, ErrNoStore
	}

	rec := model.OverrideRecord{
		Year:      year,
		Title:     optional(in.Title),
		Category:  model.Ptr(string(model.ParseCategory(in.Category))),
		Value:     model.Ptr(in.Value),
		StartDate: optional(in.StartDate),
		EndDate:   optional(in.EndDate),
		Area:      optional(in.Area),
	}
	if p := optional(in.Protocol); p != nil {
		rec.CaseProtocol = p
		rec.ItemStatus = model.Ptr(model.ItemStatusInProcess)
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("plan", "save_manual_item")
	key, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return s.store.SaveManualItem(ctx, rec)
	})
	if err != nil {
		return model.PlanItem{}, eris.Wrap(err, "plan: save manual item")
	}
	rec.Key = key
	rec.IsManual = true
	item := reconcile.ManualItem(rec)

	if entry, ok := s.cache.Get(year); ok {
		entry.Items = append(entry.Items, item)
		s.cache.Put(year, entry)
	}
	s.log.Info("manual item added", zap.String("year", year), zap.String("key", key))
	return item, nil
}

// baseRecord returns the override record addressing item id of year. Manual items are
// addressed by their own key; official items by the year-scoped override key.
func (s *Service) baseRecord(ctx context.Context, year, id string) (model.OverrideRecord, error) {
	id = strings.TrimSpace(id)
	if strings.TrimSpace(year) == "" || id == "" {
		return model.OverrideRecord{}, eris.Wrap(ErrInvalidInput, "year and item id are required")
	}
	if s.store == nil {
		return model.OverrideRecord{}, ErrNoStore
	}
	if s.isManual(ctx, year, id) {
		return model.OverrideRecord{Key: id, Year: year, IsManual: true}, nil
	}
	return model.OverrideRecord{Key: resolve.OverrideKey(year, id), Year: year, OfficialID: id}, nil
}

func (s *Service) isManual(ctx context.Context, year, id string) bool {
	if entry, ok := s.cache.Get(year); ok {
		for _, it := range entry.Items {
			if it.ID == id {
				return it.IsManual
			}
		}
	}
	rec, err := s.store.GetOverride(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("override lookup failed", zap.String("key", id), zap.Error(err))
		}
		return false
	}
	return rec.IsManual && rec.Year == year
}

// linkedProtocol returns the protocol currently stored under key, or "".
func (s *Service) linkedProtocol(ctx context.Context, key string) string {
	rec, err := s.store.GetOverride(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("override lookup failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return model.Str(rec.CaseProtocol)
}

func (s *Service) merge(ctx context.Context, rec model.OverrideRecord) error {
	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("plan", "merge_override")
	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return s.store.MergeOverride(ctx, rec)
	})
	return eris.Wrapf(err, "plan: merge override %s", rec.Key)
}

func (s *Service) findExecution(ctx context.Context, year, protocol string) *model.ExecutionRecord {
	if s.execution == nil {
		return nil
	}
	rec, err := s.execution.FindByProcess(ctx, year, protocol)
	if err != nil {
		s.log.Warn("execution lookup failed", zap.String("protocol", protocol), zap.Error(err))
		return nil
	}
	return rec
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
