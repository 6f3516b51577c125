package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osint-cli/internal/model"
)

func TestKey_Precedence(t *testing.T) {
	tests := []struct {
		name string
		c    model.Candidate
		want string
	}{
		{"email wins", model.Candidate{Email: "a@b.com", Phone: "+14155550100", Username: "ada", Name: "Ada"}, "email:a@b.com"},
		{"phone over username", model.Candidate{Phone: "+14155550100", Username: "ada"}, "phone:+14155550100"},
		{"username over name", model.Candidate{Username: "ada", Name: "Ada"}, "username:ada"},
		{"name lowercased", model.Candidate{Name: "Ada Lovelace"}, "name:ada lovelace"},
		{"empty", model.Candidate{Location: "London"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.c))
		})
	}
}

func TestStrength(t *testing.T) {
	assert.Equal(t, 15, Strength(model.Candidate{Email: "e", Phone: "p", Username: "u", Name: "n"}))
	assert.Equal(t, 8, Strength(model.Candidate{Email: "e"}))
	assert.Equal(t, 3, Strength(model.Candidate{Username: "u", Name: "n"}))
	assert.Equal(t, 0, Strength(model.Candidate{Location: "x"}))
}

func TestNormalizePhone(t *testing.T) {
	r := New("")
	assert.Equal(t, "+14155550100", r.NormalizePhone("+1 415-555-0100"))
	assert.Equal(t, "+14155550100", r.NormalizePhone("14155550100"))
	assert.Equal(t, "+15550100", r.NormalizePhone("+1 555-0100"))
	assert.Equal(t, "+15550100", r.NormalizePhone("15550100"))
	assert.Equal(t, "+14155550100", r.NormalizePhone("4155550100"))
	assert.Equal(t, "not a phone", r.NormalizePhone("  not a phone "))
	assert.Empty(t, r.NormalizePhone("   "))
}

func TestResolve_GitHubPlusUserInput(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("GitHub", map[string]any{
			"username": "ada", "name": "Ada", "location": "London", "followers": 42,
		}),
		model.NewResult(model.SourceUserInput, map[string]any{"location": "London"}),
	}

	got := r.Resolve(results, model.Params{"name": "Ada", "location": "London"})

	require.Len(t, got, 1)
	assert.Equal(t, "ada", got[0].Username)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, "London", got[0].Location)
	assert.Equal(t, "username:ada", Key(got[0]))
}

func TestResolve_PhoneFormatsMerge(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("Numverify", map[string]any{"valid": true, "international_format": "+1 415-555-0100"}),
		model.NewResult("Phone", map[string]any{"phone": "14155550100", "name": "Grace"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "+14155550100", got[0].Phone)
	assert.Equal(t, "Grace", got[0].Name)
}

func TestResolve_ShortPhoneFormatsMerge(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("Phone", map[string]any{"phone": "+1 555-0100", "name": "Alice"}),
		model.NewResult("Phone", map[string]any{"phone": "15550100", "location": "X"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "+15550100", got[0].Phone)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "X", got[0].Location)
}

func TestResolve_LocationOnlySeed(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult(model.SourceUserInput, map[string]any{"location": "Paris"}),
	}

	assert.Empty(t, r.Resolve(results, model.Params{"location": "Paris"}))

	got := r.Resolve(results, model.Params{"location": "Paris", "name": "Marie Curie"})
	require.Len(t, got, 1)
	assert.Equal(t, "Marie Curie", got[0].Name)
	assert.Equal(t, "Paris", got[0].Location)
	assert.Equal(t, "name:marie curie", Key(got[0]))
}

func TestResolve_SkipsFailedRecords(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		{Source: model.SourceError, RawData: map[string]any{}, Error: "boom"},
		model.ErrorResult("GitHub", "rate limited", map[string]any{"username": "ada"}),
	}
	assert.Empty(t, r.Resolve(results, nil))
}

func TestResolve_FillNeverOverwrites(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("A", map[string]any{"email": "Ada@Example.com", "name": "Ada"}),
		model.NewResult("B", map[string]any{"email": "ada@example.com", "name": "Augusta", "location": "London"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, "London", got[0].Location)
	assert.Equal(t, "ada@example.com", got[0].Email)
}

func TestResolve_ExtrasAttachByEmailAndPhone(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("Holehe", map[string]any{
			"email":            "ada@example.com",
			"used_services":    []string{"Twitter", "Spotify"},
			"used_service_ids": []string{"twitter"},
		}),
		model.NewResult("Ignorant", map[string]any{
			"phone":         "+1 415 555 0100",
			"used_services": []any{"Instagram", "Twitter"},
		}),
		model.NewResult("Source", map[string]any{"email": "ada@example.com", "phone": "4155550100"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"Twitter", "Spotify", "Instagram"}, got[0].UsedServices)
	assert.Equal(t, []string{"twitter"}, got[0].UsedServiceIDs)
}

func TestResolve_ExtrasNeverFormCandidates(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("Holehe", map[string]any{"email": "x@y.com", "used_services": []string{"Twitter"}}),
	}
	assert.Empty(t, r.Resolve(results, nil))
}

func TestResolve_CollapseNameLocation(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("A", map[string]any{"username": "ada", "name": "Ada", "location": "London"}),
		model.NewResult("B", map[string]any{"email": "ada@example.com", "name": "ADA", "location": "london"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "ada", got[0].Username)
	assert.Equal(t, "ada@example.com", got[0].Email)
}

func TestResolve_RankedByStrength(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("A", map[string]any{"name": "Nameonly"}),
		model.NewResult("B", map[string]any{"username": "user"}),
		model.NewResult("C", map[string]any{"email": "e@x.com"}),
		model.NewResult("D", map[string]any{"phone": "+14155550100"}),
	}

	got := r.Resolve(results, nil)

	require.Len(t, got, 4)
	assert.Equal(t, "e@x.com", got[0].Email)
	assert.Equal(t, "+14155550100", got[1].Phone)
	assert.Equal(t, "user", got[2].Username)
	assert.Equal(t, "Nameonly", got[3].Name)
}

func TestResolve_Idempotent(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("A", map[string]any{"email": "a@x.com", "name": "A"}),
		model.NewResult("B", map[string]any{"username": "bee", "location": "Rome"}),
	}

	first := r.Resolve(results, nil)

	var again []model.ToolResult
	for _, c := range first {
		again = append(again, model.NewResult("replay", map[string]any{
			"email": c.Email, "phone": c.Phone, "username": c.Username, "name": c.Name, "location": c.Location,
		}))
	}
	assert.Equal(t, first, r.Resolve(again, nil))
}

func TestResolve_DistinctKeys(t *testing.T) {
	r := New("US")
	results := []model.ToolResult{
		model.NewResult("A", map[string]any{"login": "Octo"}),
		model.NewResult("B", map[string]any{"username": "octo", "name": "Octo Cat"}),
		model.NewResult("C", map[string]any{"full_name": "Someone"}),
	}

	got := r.Resolve(results, nil)

	keys := map[string]bool{}
	for _, c := range got {
		k := Key(c)
		assert.NotEmpty(t, k)
		assert.False(t, keys[k], "duplicate key %s", k)
		keys[k] = true
	}
	require.Len(t, got, 2)
	assert.Equal(t, "Octo Cat", got[0].Name)
}
