package board

// Reference is the externally agreed estimate the project totals are compared
// against. Breakdown items annotate the reference bar and are not required to
// sum to Days.
type Reference struct {
	Label     string          `json:"label" yaml:"label"`
	Days      float64         `json:"days" yaml:"days"`
	Breakdown []ReferenceItem `json:"breakdown,omitempty" yaml:"breakdown"`
}

type ReferenceItem struct {
	Label string  `json:"label" yaml:"label"`
	Days  float64 `json:"days" yaml:"days"`
}

func DefaultReference() Reference {
	return Reference{
		Label: "Estimate",
		Days:  61.8,
		Breakdown: []ReferenceItem{
			{Label: "Research, verification, meetings", Days: 5},
			{Label: "Direction", Days: 3},
			{Label: "Management", Days: 5.8},
			{Label: "Production", Days: 48},
		},
	}
}

func (r Reference) Enabled() bool {
	return r.Days > 0
}
