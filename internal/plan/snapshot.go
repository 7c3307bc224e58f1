package plan

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/snapshot"
)

// purchasePageSize is the page size used when exporting the execution registry.
const purchasePageSize = 500

// maxPurchasePages bounds the execution export if the registry misreports its page count.
const maxPurchasePages = 200

// Snapshot syncs year from the registry and writes the plan and the execution registry into
// dir, in the layout the snapshot loader reads. The execution file is written empty when
// no execution registry is configured.
func (s *Service) Snapshot(ctx context.Context, year, dir string) error {
	if s.syncer == nil {
		return eris.New("plan: no registry configured")
	}
	officials, err := s.syncer.Sync(ctx, year, nil)
	if err != nil {
		return eris.Wrap(err, "plan: snapshot sync")
	}
	if len(officials) == 0 {
		return eris.Errorf("plan: registry returned no items for %s", year)
	}

	execution, err := s.purchases(ctx, year)
	if err != nil {
		return eris.Wrap(err, "plan: snapshot execution registry")
	}
	if err := snapshot.Write(dir, year, officials, execution); err != nil {
		return err
	}
	s.log.Info("snapshot written",
		zap.String("year", year),
		zap.String("dir", dir),
		zap.Int("items", len(officials)),
		zap.Int("purchases", len(execution)),
	)
	return nil
}

func (s *Service) purchases(ctx context.Context, year string) ([]model.ExecutionRecord, error) {
	if s.execution == nil {
		return nil, nil
	}
	var out []model.ExecutionRecord
	for page := 1; page <= maxPurchasePages; page++ {
		p, err := s.execution.ListPurchases(ctx, year, page, purchasePageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Data...)
		if len(p.Data) == 0 || page >= p.TotalPaginas {
			break
		}
	}
	return out, nil
}
