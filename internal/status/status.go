package status

import (
	"strings"
	"time"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// Status is the lifecycle status of a plan item, recomputed on every read.
type Status string

const (
	StatusNotLinked    Status = "Não vinculado"
	StatusAwaitingSync Status = "Aguardando sincronização"
	StatusInExecution  Status = "Em execução"
	StatusDelayed      Status = "Atrasado"
	StatusPlanned      Status = "Planejado"
)

// ProcessStatus classifies item at now.
//
// A linked item is InExecution once its case data has been fetched and AwaitingSync
// before that. An unlinked item is Delayed when its desired start date is before today,
// Planned when it is today or later, and NotLinked when there is no usable date.
func ProcessStatus(item model.PlanItem, now time.Time) Status {
	if strings.TrimSpace(item.CaseProtocol) != "" {
		if item.CaseData != nil {
			return StatusInExecution
		}
		return StatusAwaitingSync
	}
	start, ok := ParseDate(item.DesiredStartDate, now.Location())
	if !ok {
		return StatusNotLinked
	}
	if DaysBetween(start, now) > 0 {
		return StatusDelayed
	}
	return StatusPlanned
}

// Annotation bundles the derived fields output surfaces show next to an item.
type Annotation struct {
	Status  Status          `json:"status"`
	Health  *HealthScore    `json:"health,omitempty"`
	Phase   Phase           `json:"phase,omitempty"`
	Stage   Stage           `json:"stage,omitempty"`
	Metrics *ProcessMetrics `json:"metrics,omitempty"`
}

// Annotate derives every read-time field for item. Case-dependent fields are left empty
// when the item has no case data.
func Annotate(item model.PlanItem, now time.Time) Annotation {
	a := Annotation{Status: ProcessStatus(item, now)}
	if item.CaseData == nil {
		return a
	}
	h := CaseHealth(item.CaseData, now)
	a.Health = &h
	a.Phase = InternalPhase(item.CaseData.CurrentUnit)
	a.Stage = CaseStage(item.CaseData)
	a.Metrics = Metrics(item.CaseData)
	return a
}
