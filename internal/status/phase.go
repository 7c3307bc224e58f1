package status

import "github.com/andre-martiini/diretoria-adm-bsf/internal/resolve"

// Phase is the internal procurement phase inferred from the unit holding a case.
type Phase string

const (
	PhasePlanning       Phase = "Planejamento"
	PhaseRequestingUnit Phase = "Setor Requisitante"
	PhaseAdministration Phase = "Diretoria de Administração"
	PhaseCabinet        Phase = "Gabinete"
	PhaseLegalReview    Phase = "Análise Jurídica"
	PhaseBidding        Phase = "Setor de Licitação"
	PhaseExecution      Phase = "Execução Orçamentária"
	PhaseArchived       Phase = "Arquivado"
	PhaseUnknown        Phase = "Não identificada"
)

// phaseRules is evaluated top to bottom against the folded unit name; the first match wins.
var phaseRules = []struct {
	phase    Phase
	keywords []string
}{
	{PhaseLegalReview, []string{"PROCURADORIA", "PF-IFES", "JURIDIC"}},
	{PhaseArchived, []string{"ARQUIV"}},
	{PhaseBidding, []string{"DLC", "LICITA", "PREGAO"}},
	{PhaseCabinet, []string{"GABINETE"}},
	{PhaseRequestingUnit, []string{"COORDENADORIA DE TI", "CTI"}},
	{PhaseAdministration, []string{"DAP", "DIRETORIA DE ADMIN"}},
	{PhaseExecution, []string{"FINANCE", "CONTAB", "ORCAMENT", "EMPENHO"}},
	{PhasePlanning, []string{"PLANEJAMENTO", "COMPRAS"}},
}

// InternalPhase classifies a custodian unit name. Matching ignores case and accents.
// Empty or unmatched names yield PhaseUnknown.
func InternalPhase(unit string) Phase {
	folded := resolve.Fold(unit)
	if folded == "" {
		return PhaseUnknown
	}
	for _, r := range phaseRules {
		if resolve.ContainsAny(folded, r.keywords...) {
			return r.phase
		}
	}
	return PhaseUnknown
}
