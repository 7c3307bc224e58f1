package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

func docs(types ...string) []model.Document {
	out := make([]model.Document, len(types))
	for i, t := range types {
		out[i] = model.Document{Type: t}
	}
	return out
}

func TestCaseStage(t *testing.T) {
	tests := []struct {
		name string
		c    *model.CaseData
		want Stage
	}{
		{"nil case", nil, StageNotOpened},
		{"archived status passes through", &model.CaseData{Status: "ARQUIVADO"}, Stage("ARQUIVADO")},
		{"no documents", &model.CaseData{Status: "ATIVO"}, StagePlanning},
		{"pricing", &model.CaseData{Status: "ATIVO", Documents: docs("Mapa Comparativo de Preços")}, StagePricing},
		{"legal", &model.CaseData{Status: "ATIVO", Documents: docs("Pesquisa de Preços", "Parecer Jurídico")}, StageLegalReview},
		{"external", &model.CaseData{Status: "EM TRAMITAÇÃO", Documents: docs("Edital")}, StageExternalPhase},
		{"awarded", &model.CaseData{Status: "ATIVO", Documents: docs("Edital", "Termo de Homologação")}, StageAwarded},
		{"contracted", &model.CaseData{Status: "CADASTRADO", Documents: docs("Nota de Empenho")}, StageContracted},
		{"closed", &model.CaseData{Status: "ATIVO", Documents: docs("Nota de Empenho", "Termo de Recebimento Definitivo")}, StageClosed},
		{"nature counts", &model.CaseData{Status: "ATIVO", Documents: []model.Document{{Type: "Despacho", Nature: "de Arquivamento"}}}, StageClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CaseStage(tt.c))
		})
	}
}
