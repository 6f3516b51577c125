package model

// FinalProfile is the synthesized person profile.
type FinalProfile struct {
	FullName          string           `json:"full_name"`
	Summary           string           `json:"summary"`
	Locations         []string         `json:"locations"`
	EmploymentHistory []map[string]any `json:"employment_history"`
}

// Judgement is the validated profile plus per-field confidence and
// provenance.
type Judgement struct {
	JudgedProfile   FinalProfile        `json:"judged_profile"`
	FieldConfidence map[string]float64  `json:"field_confidence"`
	Provenance      map[string][]string `json:"provenance"`
	Warnings        []string            `json:"warnings"`
	Fallback        bool                `json:"fallback,omitempty"`
}

// DeepResponse is the output of the enrichment stage.
type DeepResponse struct {
	RunID     string       `json:"run_id,omitempty"`
	Profile   FinalProfile `json:"profile"`
	Raw       []ToolResult `json:"raw"`
	Judgement *Judgement   `json:"judgement,omitempty"`
}
