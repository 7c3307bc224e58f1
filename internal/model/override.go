package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatusInProcess marks an official item that has been linked to a case.
const ItemStatusInProcess = "Em Processo"

// OverrideRecord is a locally-recorded document for one plan item. Official items are keyed
// by "{year}-{officialId}"; manual items carry a generated key and IsManual.
//
// Every optional field is a pointer or a nil-able slice so that a partial write only touches
// the fields it sets.
type OverrideRecord struct {
	Key              string           `json:"-"`
	Year             string           `json:"year"`
	OfficialID       string           `json:"official_id,omitempty"`
	IsManual         bool             `json:"is_manual,omitempty"`
	CaseProtocol     *string          `json:"case_protocol,omitempty"`
	CaseData         *CaseData        `json:"case_data,omitempty"`
	ExecutedValue    *decimal.Decimal `json:"executed_value,omitempty"`
	TeamMembers      *[]string        `json:"team_members,omitempty"`
	TeamIdentified   *bool            `json:"team_identified,omitempty"`
	DFDNumber        *string          `json:"dfd_number,omitempty"`
	ItemStatus       *string          `json:"item_status,omitempty"`
	FutureContractID *string          `json:"future_contract_id,omitempty"`

	// Manual item fields.
	Title     *string          `json:"title,omitempty"`
	Category  *string          `json:"category,omitempty"`
	Value     *decimal.Decimal `json:"value,omitempty"`
	StartDate *string          `json:"start_date,omitempty"`
	EndDate   *string          `json:"end_date,omitempty"`
	Area      *string          `json:"area,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// ClearCaseData drops the stored case snapshot before the merge. It is not stored.
	ClearCaseData bool `json:"-"`
}

// Str returns the value behind a string pointer, or "".
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Dec returns the value behind a decimal pointer, or zero.
func Dec(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
