package status

import (
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resolve"
)

// Stage is the procurement stage implied by the documents attached to a case.
type Stage string

const (
	StageNotOpened     Stage = "Processo Não Aberto"
	StagePlanning      Stage = "Planejamento da Contratação"
	StagePricing       Stage = "Composição de Preços"
	StageLegalReview   Stage = "Análise de Legalidade"
	StageExternalPhase Stage = "Fase Externa"
	StageAwarded       Stage = "Adjudicado/Homologado"
	StageContracted    Stage = "Contratado"
	StageClosed        Stage = "Encerrado/Arquivado"
)

// stageTriggers is ordered from the end of the flow backwards: the latest stage with a
// matching document wins.
var stageTriggers = []struct {
	stage    Stage
	keywords []string
}{
	{StageClosed, []string{"TERMO DE RECEBIMENTO DEFINITIVO", "DESPACHO DE ARQUIVAMENTO"}},
	{StageContracted, []string{"NOTA DE EMPENHO", "CONTRATO ASSINADO", "ORDEM DE SERVICO"}},
	{StageAwarded, []string{"TERMO DE ADJUDICACAO", "TERMO DE HOMOLOGACAO", "ATA DE REALIZACAO DO PREGAO"}},
	{StageExternalPhase, []string{"EDITAL", "AVISO DE LICITACAO"}},
	{StageLegalReview, []string{"PARECER JURIDICO", "MINUTA DE EDITAL"}},
	{StagePricing, []string{"PESQUISA DE PRECOS", "MAPA COMPARATIVO"}},
}

var activeCaseStatuses = []string{"ATIVO", "CADASTRADO", "TRAMITACAO"}

// CaseStage infers the stage of c. A case whose official status is not an active one
// (archived, cancelled) reports that status verbatim.
func CaseStage(c *model.CaseData) Stage {
	if c == nil {
		return StageNotOpened
	}
	if !resolve.ContainsAny(resolve.Fold(c.Status), activeCaseStatuses...) {
		return Stage(c.Status)
	}

	titles := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		titles = append(titles, resolve.Fold(d.Type+" "+d.Nature))
	}
	for _, trig := range stageTriggers {
		for _, t := range titles {
			if resolve.ContainsAny(t, trig.keywords...) {
				return trig.stage
			}
		}
	}
	return StagePlanning
}
