package plan

import (
	"fmt"
	"time"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

const (
	labelLayout    = "02/01/2006, 15:04:05"
	labelNeverSync = "Nunca sincronizado"
)

// lastSyncLabel describes when the official items of an entry were last refreshed.
func lastSyncLabel(source model.Source, syncedAt time.Time, cacheDoc *model.PlanCacheDoc, now time.Time) string {
	loc := now.Location()
	switch {
	case source == model.SourceLive && !syncedAt.IsZero():
		return syncedAt.In(loc).Format(labelLayout)
	case cacheDoc != nil && !cacheDoc.UpdatedAt.IsZero():
		return cacheDoc.UpdatedAt.In(loc).Format(labelLayout)
	case source == model.SourceSnapshot:
		return fmt.Sprintf("Snapshot Local (%s)", now.Format("02/01/2006"))
	default:
		return labelNeverSync
	}
}
