// Package dataset stores ingested datasets and answers the lookups the chat
// pipeline needs: column metadata, a narrative summary per package, and the
// path of the normalized file generated analysis scripts read.
package dataset

// Column describes one column of an ingested dataset.
type Column struct {
	Name            string        `json:"name"`
	Type            string        `json:"type"`
	Min             *float64      `json:"min"`
	Max             *float64      `json:"max"`
	Avg             *float64      `json:"avg"`
	Count           int           `json:"count"`
	UniqueValues    int           `json:"uniqueValues"`
	PotentialValues []interface{} `json:"potentialValues"`
}

// Dataset is one registered dataset file within a package.
type Dataset struct {
	ID             string   `json:"id"`
	Package        string   `json:"package"`
	Filename       string   `json:"filename"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Columns        []Column `json:"columns"`
	NormalizedPath string   `json:"normalizedPath"`
	CreatedAt      int64    `json:"createdAt"`
}
