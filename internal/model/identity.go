package model

// SearchQuery is the user-facing input of a shallow search.
type SearchQuery struct {
	Name            string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Username        string `json:"username,omitempty" validate:"omitempty,max=100"`
	Location        string `json:"location,omitempty" validate:"omitempty,max=200"`
	FreeTextContext string `json:"free_text_context,omitempty" validate:"omitempty,max=4000"`
}

// Params converts the query into a parameter bag holding only populated
// fields.
func (q SearchQuery) Params() Params {
	p := Params{}
	p.SetDefault(FieldName, q.Name)
	p.SetDefault(FieldEmail, q.Email)
	p.SetDefault(FieldPhone, q.Phone)
	p.SetDefault(FieldUsername, q.Username)
	p.SetDefault(FieldLocation, q.Location)
	p.SetDefault(FieldFreeTextContext, q.FreeTextContext)
	return p
}

// Empty reports whether no field is populated.
func (q SearchQuery) Empty() bool {
	return len(q.Params()) == 0
}

// Candidate is one deduplicated identity cluster.
type Candidate struct {
	Name           string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Email          string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	Username       string   `json:"username,omitempty" validate:"omitempty,max=100"`
	Location       string   `json:"location,omitempty" validate:"omitempty,max=200"`
	UsedServices   []string `json:"used_services,omitempty" validate:"omitempty,max=500"`
	UsedServiceIDs []string `json:"used_service_ids,omitempty" validate:"omitempty,max=500"`
}

// Params converts the candidate into a parameter bag for the deep stage.
func (c Candidate) Params() Params {
	p := Params{}
	p.SetDefault(FieldName, c.Name)
	p.SetDefault(FieldEmail, c.Email)
	p.SetDefault(FieldPhone, c.Phone)
	p.SetDefault(FieldUsername, c.Username)
	p.SetDefault(FieldLocation, c.Location)
	if len(c.UsedServices) > 0 {
		p[FieldUsedServices] = append([]string(nil), c.UsedServices...)
	}
	if len(c.UsedServiceIDs) > 0 {
		p[FieldUsedServiceIDs] = append([]string(nil), c.UsedServiceIDs...)
	}
	return p
}

// SignalAnalysis aggregates one identity field across sources.
type SignalAnalysis struct {
	PlatformsFound int     `json:"platforms_found"`
	UniqueValues   int     `json:"unique_values"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

// Verification levels derived from identity confidence.
const (
	VerificationHigh   = "HIGH"
	VerificationMedium = "MEDIUM"
	VerificationLow    = "LOW"
)

// Risk flag severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// RiskFlag marks a conflicting identity field.
type RiskFlag struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// RiskAssessment is the overall risk score with the flags that drove it.
type RiskAssessment struct {
	OverallScore float64    `json:"overall_score"`
	Flags        []RiskFlag `json:"flags"`
}

// Analysis is the cross-source scoring attached to a shallow search.
type Analysis struct {
	IdentityConfidence    float64                   `json:"identity_confidence"`
	VerificationStatus    string                    `json:"verification_status"`
	SignalAnalysis        map[string]SignalAnalysis `json:"signal_analysis"`
	RiskAssessment        RiskAssessment            `json:"risk_assessment"`
	CrossPlatformInsights []string                  `json:"cross_platform_insights"`
}

// ShallowResponse is the output of the discovery stage.
type ShallowResponse struct {
	RunID      string       `json:"run_id,omitempty"`
	Candidates []Candidate  `json:"candidates"`
	Raw        []ToolResult `json:"raw"`
	Analysis   *Analysis    `json:"analysis,omitempty"`
}
