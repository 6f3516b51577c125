package linkcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/osint-cli/internal/model"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCache_TTLBoundary(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(DefaultTTL, WithClock(clk.Now))

	c.SetBest("linkedin", "email:a@b.com", "https://linkedin.com/in/ada")

	clk.Advance(DefaultTTL - time.Second)
	url, ok := c.GetBest("linkedin", "email:a@b.com")
	assert.True(t, ok)
	assert.Equal(t, "https://linkedin.com/in/ada", url)

	clk.Advance(2 * time.Second)
	_, ok = c.GetBest("linkedin", "email:a@b.com")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")
}

func TestCache_OverwriteResetsTimestamp(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := New(10*time.Second, WithClock(clk.Now))

	c.SetBest("x", "fp", "https://x.com/old")
	clk.Advance(8 * time.Second)
	c.SetBest("x", "fp", "https://x.com/new")
	clk.Advance(8 * time.Second)

	url, ok := c.GetBest("x", "fp")
	assert.True(t, ok)
	assert.Equal(t, "https://x.com/new", url)
}

func TestCache_PlatformsAreIndependent(t *testing.T) {
	c := New(0)
	c.SetBest("linkedin", "fp", "https://linkedin.com/in/ada")

	_, ok := c.GetBest("x", "fp")
	assert.False(t, ok)

	c.SetBest("x", "fp", "")
	assert.Equal(t, 1, c.Len(), "empty urls are not stored")
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name   string
		params model.Params
		want   string
	}{
		{"email normalized", model.Params{"email": "  A@B.com "}, "email:a@b.com"},
		{"email beats phone", model.Params{"email": "a@b.com", "phone": "+1"}, "email:a@b.com"},
		{"phone", model.Params{"phone": " +14155550100 "}, "phone:+14155550100"},
		{"name and location", model.Params{"name": "Ada Lovelace", "location": "London"}, "name_loc:ada lovelace|london"},
		{"location only", model.Params{"location": "London"}, "name_loc:|london"},
		{"anonymous", model.Params{"username": "octocat"}, Anonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fingerprint(tt.params))
		})
	}

	assert.Equal(t, Fingerprint(model.Params{"email": "  A@B.com "}), Fingerprint(model.Params{"email": "a@b.com"}))
}
