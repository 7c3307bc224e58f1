package model

// CaseData is the snapshot of an internal case (SIPAC process) linked to a plan item.
type CaseData struct {
	Protocol          string     `json:"protocol,omitempty"`
	Status            string     `json:"status,omitempty"`
	Subject           string     `json:"subject,omitempty"`
	CurrentUnit       string     `json:"current_unit,omitempty"`
	FilingDate        string     `json:"filing_date,omitempty"` // DD/MM/YYYY
	Movements         []Movement `json:"movements,omitempty"`   // most recent first
	Documents         []Document `json:"documents,omitempty"`
	InterestedParties []Party    `json:"interested_parties,omitempty"`
}

// Movement is a transfer of the case between two organizational units.
type Movement struct {
	Date            string `json:"date"`           // DD/MM/YYYY
	Time            string `json:"time,omitempty"` // HH:MM
	OriginUnit      string `json:"origin_unit"`
	DestinationUnit string `json:"destination_unit"`
}

// Document is a document attached to a case.
type Document struct {
	Type   string `json:"type"`
	Nature string `json:"nature,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Party is an interested party of a case.
type Party struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// LatestMovementDate returns the date of the most recent movement, falling back to the
// filing date. Movements are stored most-recent-first, as the case system lists them.
func (c *CaseData) LatestMovementDate() string {
	if c == nil {
		return ""
	}
	for _, m := range c.Movements {
		if m.Date != "" {
			return m.Date
		}
	}
	return c.FilingDate
}
