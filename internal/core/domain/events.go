package domain

import "time"

// RegionsUpdated is published whenever the stored region set changes.
type RegionsUpdated struct {
	Codes      []string  `json:"codes"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}
