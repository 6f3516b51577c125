package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "search", "enrich", "plan", "espy", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "osint-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "email", "phone", "username", "location", "context", "no-store"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "search should have --%s flag", name)
	}
}

func TestEnrichCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "email", "phone", "username", "location", "linkedin-url", "x-url", "scrape-url"} {
		assert.NotNil(t, enrichCmd.Flags().Lookup(name), "enrich should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("request-timeout"))
}

func TestPlanCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range planCmd.Commands() {
		names[c.Name()] = true
		assert.NotNil(t, c.Flags().Lookup("execute"), "plan %s should have --execute", c.Name())
	}
	assert.True(t, names["search"])
	assert.True(t, names["enrich"])
}

func TestEspyPollCommand_Args(t *testing.T) {
	assert.Error(t, espyPollCmd.Args(espyPollCmd, nil))
	assert.NoError(t, espyPollCmd.Args(espyPollCmd, []string{"123"}))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestEnrichExtra(t *testing.T) {
	t.Cleanup(func() { enrichLinkedIn, enrichX, enrichScrape = "", "", nil })

	assert.Empty(t, enrichExtra())

	enrichLinkedIn = "https://www.linkedin.com/in/ada"
	enrichScrape = []string{"https://github.com/ada"}
	extra := enrichExtra()
	assert.Equal(t, "https://www.linkedin.com/in/ada", extra.String("linkedin_finder_best_url"))
	assert.False(t, extra.Has("x_finder_best_url"))
	assert.Equal(t, map[string]any{"scrape": map[string]any{"urls": []string{"https://github.com/ada"}}}, extra["hyperbrowser"])
}
