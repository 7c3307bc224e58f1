package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProtocol_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeProtocol(""))
	assert.Equal(t, "", NormalizeProtocol("./-"))
}

func TestNormalizeProtocol_StripsSeparators(t *testing.T) {
	assert.Equal(t, "2354320261", NormalizeProtocol("23.543/2026-1"))
	assert.Equal(t, "23543000123202611", NormalizeProtocol("23543.000123/2026-11"))
	assert.Equal(t, "23543000123", NormalizeProtocol(" 23543 000123 "))
}

func TestNormalizeProtocol_Idempotent(t *testing.T) {
	for _, in := range []string{"", "abc", "23543.000123/2026", "1-2-3", "Nº 45/2026"} {
		once := NormalizeProtocol(in)
		assert.Equal(t, once, NormalizeProtocol(once), "input %q", in)
	}
}

func TestSameProcess(t *testing.T) {
	assert.True(t, SameProcess("23543.000123/2026", "23543000123/2026"))
	assert.False(t, SameProcess("23543.000123/2026", "23543.000124/2026"))
	assert.False(t, SameProcess("", ""))
	assert.False(t, SameProcess("n/a", "s/n"))
}

func TestOverrideKey(t *testing.T) {
	assert.Equal(t, "2026-15", OverrideKey("2026", "15"))
	assert.Equal(t, "2026-100-9-2026", OverrideKey("2026", "100-9/2026"))
	assert.Equal(t, "2026-7", OverrideKey(" 2026 ", " 7 "))
}

func TestDFDNumber(t *testing.T) {
	assert.Equal(t, "9/2026", DFDNumber("100-9/2026"))
	assert.Equal(t, "9-1/2026", DFDNumber("100-9-1/2026"))
	assert.Equal(t, "", DFDNumber("1009/2026"))
	assert.Equal(t, "", DFDNumber(""))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "SERVICOS DE ENGENHARIA", Fold("  Serviços   de engenharia "))
	assert.Equal(t, "PRO-REITORIA", Fold("Pró-Reitoria"))
	assert.Equal(t, "", Fold("   "))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny(Fold("Setor de Licitações"), "DLC", "LICITA"))
	assert.False(t, ContainsAny(Fold("Gabinete"), "DLC", "LICITA"))
}
