package numverify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantValid any
	}{
		{
			name:      "valid",
			status:    http.StatusOK,
			body:      `{"valid":true,"number":"14155550100","international_format":"+14155550100","country_code":"US"}`,
			wantValid: true,
		},
		{
			name:    "error document",
			status:  http.StatusOK,
			body:    `{"success":false,"error":{"code":101,"type":"invalid_access_key"}}`,
			wantErr: true,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `nope`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/validate", r.URL.Path)
				assert.Equal(t, "key", r.URL.Query().Get("access_key"))
				assert.Equal(t, "+14155550100", r.URL.Query().Get("number"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient("key", WithBaseURL(srv.URL)).Validate(context.Background(), "+14155550100")
			if tt.wantErr {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, got["valid"])
			assert.Equal(t, "+14155550100", got["international_format"])
		})
	}
}
