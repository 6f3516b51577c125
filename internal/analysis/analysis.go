// Package analysis scores how consistently raw tool results describe one
// identity.
//
// Each tracked field is extracted per source, then summarized into a
// SignalAnalysis. The summaries drive an identity-confidence score, a
// verification status, conflict risk flags, and human-readable insights.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/resolve"
)

// Source identifiers the extraction rules recognize.
const (
	SourceGitHub       = "GitHub"
	SourceGitHubExtras = "GitHub-Extras"
	SourceHolehe       = "Holehe"
	SourceGHunt        = "GHunt"
	SourceIgnorant     = "Ignorant"
	SourceNumverify    = "Numverify"
	SourceESPYEmail    = "ESPY-Email"
	SourceESPYPhone    = "ESPY-Phone"
	SourceOpenCage     = "OpenCage"
)

// Fields is the fixed evaluation order of tracked identity fields.
var Fields = []string{
	model.FieldEmail,
	model.FieldPhone,
	model.FieldUsername,
	model.FieldName,
	model.FieldLocation,
}

var weights = map[string]float64{
	model.FieldEmail:    0.35,
	model.FieldPhone:    0.25,
	model.FieldUsername: 0.20,
	model.FieldName:     0.10,
	model.FieldLocation: 0.10,
}

// riskFields are checked for conflicts, in flag order.
var riskFields = []string{
	model.FieldName,
	model.FieldLocation,
	model.FieldEmail,
	model.FieldPhone,
}

type extractor func(source string, raw map[string]any) string

type rule struct {
	extract   extractor
	preferred map[string]bool
}

var rules = map[string]rule{
	model.FieldEmail: {
		extract:   extractEmail,
		preferred: set(SourceHolehe, SourceGHunt, SourceESPYEmail, SourceGitHubExtras),
	},
	model.FieldPhone: {
		extract:   extractPhone,
		preferred: set(SourceIgnorant, SourceNumverify, SourceESPYPhone),
	},
	model.FieldUsername: {
		extract:   extractUsername,
		preferred: set(SourceGitHub, SourceGitHubExtras),
	},
	model.FieldName: {
		extract:   extractName,
		preferred: set(SourceGitHub),
	},
	model.FieldLocation: {
		extract:   extractLocation,
		preferred: set(SourceGitHub, SourceGitHubExtras, model.SourceUserInput, SourceOpenCage),
	},
}

// observation is one (source, value) pair for a field.
type observation struct {
	source string
	value  string
}

// Analyze scores the given raw results. It never fails; missing data
// yields zero-valued signals.
func Analyze(results []model.ToolResult) model.Analysis {
	signals := make(map[string]model.SignalAnalysis, len(Fields))
	for _, field := range Fields {
		obs := collect(results, rules[field])
		signals[field] = summarize(field, obs)
	}

	confidence := IdentityConfidence(signals)
	return model.Analysis{
		IdentityConfidence:    confidence,
		VerificationStatus:    Status(confidence),
		SignalAnalysis:        signals,
		RiskAssessment:        assessRisk(signals),
		CrossPlatformInsights: insights(signals, results),
	}
}

func collect(results []model.ToolResult, r rule) []observation {
	var out []observation
	for _, res := range results {
		if v := r.extract(res.Source, res.RawData); v != "" {
			out = append(out, observation{source: res.Source, value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := r.preferred[out[i].source], r.preferred[out[j].source]
		if pi != pj {
			return pi
		}
		return out[i].source < out[j].source
	})
	return out
}

func summarize(field string, obs []observation) model.SignalAnalysis {
	platforms := make(map[string]bool)
	values := make(map[string]bool)
	total := 0.0
	for _, o := range obs {
		platforms[o.source] = true
		values[o.value] = true
		total += sourceConfidence(field, o.source)
	}
	s := model.SignalAnalysis{
		PlatformsFound: len(platforms),
		UniqueValues:   len(values),
	}
	if len(obs) > 0 {
		s.AvgConfidence = total / float64(len(obs))
	}
	return s
}

// sourceConfidence is the fixed confidence a source contributes for field.
func sourceConfidence(field, source string) float64 {
	switch field {
	case model.FieldEmail:
		if source == SourceHolehe || source == SourceGHunt {
			return 0.6
		}
		return 0.5
	case model.FieldPhone:
		if source == SourceNumverify {
			return 0.9
		}
		return 0.6
	case model.FieldUsername:
		if source == SourceGitHub {
			return 0.9
		}
		return 0.5
	case model.FieldName, model.FieldLocation:
		if source == SourceGitHub {
			return 0.7
		}
		return 0.5
	default:
		return 0
	}
}

// FieldScore is 1.0 when at least two platforms agree on a single value,
// 0.5 for a lone platform, and 0 on disagreement or no data.
func FieldScore(s model.SignalAnalysis) float64 {
	switch {
	case s.UniqueValues <= 1 && s.PlatformsFound >= 2:
		return 1.0
	case s.UniqueValues <= 1 && s.PlatformsFound == 1:
		return 0.5
	default:
		return 0
	}
}

// IdentityConfidence is the weighted sum of field scores, clamped to [0,1].
func IdentityConfidence(signals map[string]model.SignalAnalysis) float64 {
	total := 0.0
	for _, field := range Fields {
		total += weights[field] * FieldScore(signals[field])
	}
	return clamp(total, 0, 1)
}

// Status maps an identity confidence to a verification level.
func Status(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return model.VerificationHigh
	case confidence >= 0.5:
		return model.VerificationMedium
	default:
		return model.VerificationLow
	}
}

// RiskScore combines flag counts into an overall score in [1,10].
func RiskScore(high, medium int) float64 {
	return clamp(2.0+1.5*float64(high)+1.0*float64(medium), 1, 10)
}

func assessRisk(signals map[string]model.SignalAnalysis) model.RiskAssessment {
	flags := []model.RiskFlag{}
	high, medium := 0, 0
	for _, field := range riskFields {
		if signals[field].UniqueValues <= 1 {
			continue
		}
		severity := model.SeverityHigh
		if field == model.FieldName || field == model.FieldLocation {
			severity = model.SeverityMedium
			medium++
		} else {
			high++
		}
		flags = append(flags, model.RiskFlag{
			Type:        field + "_inconsistency",
			Severity:    severity,
			Description: fmt.Sprintf("Multiple distinct %s values observed across sources", field),
		})
	}
	return model.RiskAssessment{OverallScore: RiskScore(high, medium), Flags: flags}
}

func insights(signals map[string]model.SignalAnalysis, results []model.ToolResult) []string {
	out := []string{}

	if email := signals[model.FieldEmail]; email.UniqueValues == 1 && email.PlatformsFound >= 2 {
		out = append(out, "Email consistent across multiple sources")
	}

	if signals[model.FieldPhone].PlatformsFound >= 1 {
		for _, res := range results {
			if res.Source == SourceNumverify && res.RawData["valid"] == true {
				out = append(out, "Phone validated by Numverify")
				break
			}
		}
	}

	for _, res := range results {
		if res.Source != SourceGitHub {
			continue
		}
		if n, ok := integer(res.RawData["followers"]); ok {
			out = append(out, fmt.Sprintf("GitHub profile found with %d followers", n))
		}
		break
	}
	return out
}

func extractEmail(source string, raw map[string]any) string {
	switch source {
	case SourceHolehe, SourceGHunt, SourceGitHubExtras:
		return lower(str(raw, "email"))
	case SourceESPYEmail:
		return lower(first(str(raw, "value"), str(raw, "email")))
	}
	return ""
}

func extractPhone(source string, raw map[string]any) string {
	return resolve.NormalizePhone(rawPhone(source, raw), resolve.DefaultRegion)
}

func rawPhone(source string, raw map[string]any) string {
	switch source {
	case SourceIgnorant:
		return str(raw, "phone")
	case SourceNumverify:
		return first(str(raw, "international_format"), str(raw, "number"))
	case SourceESPYPhone:
		return first(str(raw, "value"), str(raw, "phone"))
	}
	return ""
}

func extractUsername(source string, raw map[string]any) string {
	switch source {
	case SourceGitHub:
		return lower(first(str(raw, "username"), str(raw, "login")))
	case SourceGitHubExtras:
		return lower(str(raw, "username"))
	}
	return ""
}

func extractName(source string, raw map[string]any) string {
	if source == SourceGitHub {
		return str(raw, "name")
	}
	return ""
}

func extractLocation(source string, raw map[string]any) string {
	switch source {
	case SourceGitHub, SourceGitHubExtras, model.SourceUserInput:
		return str(raw, "location")
	case SourceOpenCage:
		comps, _ := raw["components"].(map[string]any)
		city := str(comps, "city")
		cc := strings.ToUpper(str(comps, "country_code"))
		if city != "" && cc != "" {
			return city + ", " + cc
		}
		return cc
	}
	return ""
}

// str reads a scalar at key as a trimmed string.
func str(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func lower(s string) string { return strings.ToLower(s) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
