package region

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/osint-cli/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		params model.Params
		want   Region
	}{
		{
			name:   "phone wins over location and email",
			params: model.Params{"phone": "+44 121 234 5678", "location": "Toronto", "email": "a@b.in"},
			want:   Region{Country: "GB", Market: "en-GB"},
		},
		{
			name:   "location gazetteer",
			params: model.Params{"location": "Bengaluru, Karnataka"},
			want:   Region{Country: "IN", Market: "en-IN"},
		},
		{
			name:   "location is case insensitive",
			params: model.Params{"location": "SYDNEY"},
			want:   Region{Country: "AU", Market: "en-AU"},
		},
		{
			name:   "unparseable phone falls through to location",
			params: model.Params{"phone": "call me", "location": "Toronto"},
			want:   Region{Country: "CA", Market: "en-CA"},
		},
		{
			name:   "email tld",
			params: model.Params{"email": "someone@example.co.uk"},
			want:   Region{Country: "GB", Market: "en-GB"},
		},
		{
			name:   "default",
			params: model.Params{"name": "Ada"},
			want:   Region{Country: "US", Market: "en-US"},
		},
		{
			name:   "us phone",
			params: model.Params{"phone": "+1 201 555 0123"},
			want:   Region{Country: "US", Market: "en-US"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.params))
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	p := model.Params{"location": "Mumbai"}
	assert.Equal(t, Resolve(p), Resolve(p))
}

func TestMarket(t *testing.T) {
	assert.Equal(t, "en-IN", Market("in"))
	assert.Equal(t, "en-US", Market("FR"))
	assert.Equal(t, "en-US", Market(""))
}

func TestFromEmail(t *testing.T) {
	assert.Equal(t, "", FromEmail("not-an-email"))
	assert.Equal(t, "AU", FromEmail("x@uni.edu.AU"))
	assert.Equal(t, "", FromEmail("x@gmail.com"))
}
