package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	table := New([]Entry{
		{Service: "Twitter", Aliases: []string{"twitter.com", "X.com"}},
		{Service: "", Aliases: []string{"ignored.com"}},
	})

	tests := []struct {
		label   string
		wantID  string
		wantHst string
		wantOK  bool
	}{
		{"twitter.com", "twitter", "twitter.com", true},
		{"  WWW.Twitter.com/ ", "twitter", "twitter.com", true},
		{"x.com/home?lang=en#top", "twitter", "x.com", true},
		{"twitter", "twitter", "twitter", true},
		{"ignored.com", "ignored.com", "ignored.com", true},
		{"unknown.io/path", "unknown.io", "unknown.io", true},
		{"   ", "", "", false},
		{"www./", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			id, host, ok := table.Canonicalize(tt.label)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantHst, host)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
	assert.Equal(t, 1, table.Len())
}

func TestParse_JSONAndYAML(t *testing.T) {
	jsonTable, err := Parse([]byte(`[{"service":"spotify","aliases":["spotify.com"],"module_path":"m.spotify"}]`))
	require.NoError(t, err)
	id, _, _ := jsonTable.Canonicalize("spotify.com")
	assert.Equal(t, "spotify", id)
	e, ok := jsonTable.Lookup("spotify")
	require.True(t, ok)
	assert.Equal(t, "m.spotify", e.ModulePath)

	yamlTable, err := Parse([]byte("- service: discord\n  aliases: [discord.com]\n"))
	require.NoError(t, err)
	id, _, _ = yamlTable.Canonicalize("discord.com")
	assert.Equal(t, "discord", id)

	_, err = Parse([]byte("service: {"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"service":"imgur","aliases":["imgur.com"]}]`), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	id, _, ok := def.Canonicalize("x.com")
	assert.True(t, ok)
	assert.Equal(t, "twitter", id)
}
