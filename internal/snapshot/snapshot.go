// Package snapshot reads and writes point-in-time copies of the plan and execution
// registries, used to render a plan before (or instead of) a live sync.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/fetcher"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/reconcile"
)

// ExecutionFile is the name of the execution registry snapshot.
const ExecutionFile = "execution_records.json"

// PlanFile returns the name of the plan snapshot for year.
func PlanFile(year string) string { return fmt.Sprintf("pca_%s.json", year) }

// Snapshot is the content of the snapshot files for one year.
type Snapshot struct {
	Officials []model.OfficialItem
	Execution []model.ExecutionRecord
}

// Loader reads snapshot files from a local directory or an http(s) base URL.
type Loader struct {
	source  string
	fetcher fetcher.Fetcher
	log     *zap.Logger
	now     func() time.Time
}

// NewLoader creates a Loader. f is only used when source is an http(s) URL and may be nil
// otherwise.
func NewLoader(source string, f fetcher.Fetcher) *Loader {
	return &Loader{
		source:  strings.TrimRight(strings.TrimSpace(source), "/"),
		fetcher: f,
		log:     zap.L().With(zap.String("component", "snapshot")),
		now:     time.Now,
	}
}

func (l *Loader) remote() bool {
	return strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://")
}

// Load reads both snapshot files for year. A missing or malformed file yields an empty list
// for that file and a warning; Load never fails.
func (l *Loader) Load(ctx context.Context, year string) Snapshot {
	var snap Snapshot

	officials, err := l.loadOfficials(ctx, year)
	if err != nil {
		l.log.Warn("plan snapshot unavailable", zap.String("year", year), zap.Error(err))
	} else {
		snap.Officials = officials
	}

	execution, err := l.loadExecution(ctx)
	if err != nil {
		l.log.Warn("execution snapshot unavailable", zap.Error(err))
	} else {
		snap.Execution = execution
	}
	return snap
}

// LoadItems maps the plan snapshot for year into plan items, resolving execution records
// for the protocols already present. It carries no local overrides.
func (l *Loader) LoadItems(ctx context.Context, year string) []model.PlanItem {
	snap := l.Load(ctx, year)
	return reconcile.Reconcile(year, snap.Officials, nil, nil, snap.Execution)
}

func (l *Loader) loadOfficials(ctx context.Context, year string) ([]model.OfficialItem, error) {
	raw, err := l.read(ctx, PlanFile(year))
	if err != nil {
		return nil, err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	return decodeList[model.OfficialItem](ctx, raw, &env, func() []json.RawMessage {
		return []json.RawMessage{env.Data}
	})
}

func (l *Loader) loadExecution(ctx context.Context) ([]model.ExecutionRecord, error) {
	raw, err := l.read(ctx, ExecutionFile)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data   json.RawMessage `json:"data"`
		PNCP   json.RawMessage `json:"pncp"`
		Legacy json.RawMessage `json:"legacy"`
	}
	return decodeList[model.ExecutionRecord](ctx, raw, &env, func() []json.RawMessage {
		if len(env.Data) > 0 {
			return []json.RawMessage{env.Data}
		}
		return []json.RawMessage{env.PNCP, env.Legacy}
	})
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	if l.source == "" {
		return nil, eris.New("snapshot: no source configured")
	}
	if !l.remote() {
		b, err := os.ReadFile(filepath.Join(l.source, name))
		return b, eris.Wrapf(err, "snapshot: read %s", name)
	}
	if l.fetcher == nil {
		return nil, eris.Errorf("snapshot: no fetcher for %s", l.source)
	}
	url := fmt.Sprintf("%s/%s?t=%d", l.source, name, l.now().UnixNano())
	body, err := l.fetcher.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: fetch %s", name)
	}
	defer body.Close() //nolint:errcheck
	b, err := io.ReadAll(body)
	return b, eris.Wrapf(err, "snapshot: read body %s", name)
}

// decodeList accepts a bare JSON array or an object envelope. For an envelope, raw is
// unmarshalled into env and parts returns the arrays to concatenate.
func decodeList[T any](ctx context.Context, raw []byte, env any, parts func() []json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		return streamArray[T](ctx, raw)
	}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, eris.Wrap(err, "snapshot: decode envelope")
	}
	var out []T
	for _, p := range parts() {
		p = bytes.TrimSpace(p)
		if len(p) == 0 || bytes.Equal(p, []byte("null")) {
			continue
		}
		items, err := streamArray[T](ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func streamArray[T any](ctx context.Context, raw []byte) ([]T, error) {
	ch, errCh := fetcher.DecodeJSONArray[T](ctx, bytes.NewReader(raw))
	var out []T
	for v := range ch {
		out = append(out, v)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "snapshot: decode array")
	}
	return out, nil
}

// Write stores officials and execution records for year under dir, in the envelope format
// Load reads. Files are written to a temporary name and renamed into place.
func Write(dir, year string, officials []model.OfficialItem, execution []model.ExecutionRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "snapshot: create %s", dir)
	}
	if officials == nil {
		officials = []model.OfficialItem{}
	}
	if execution == nil {
		execution = []model.ExecutionRecord{}
	}
	if err := writeJSON(filepath.Join(dir, PlanFile(year)), map[string]any{"data": officials}); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, ExecutionFile), map[string]any{"data": execution})
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "snapshot: marshal %s", filepath.Base(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return eris.Wrapf(err, "snapshot: write %s", filepath.Base(path))
	}
	return eris.Wrapf(os.Rename(tmp, path), "snapshot: rename %s", filepath.Base(path))
}
