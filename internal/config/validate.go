package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on. Modes: "serve",
// "search", "enrich", "plan". Missing tool credentials are not errors; the
// affected tools simply report that they cannot run.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "search", "enrich":
	case "plan":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "", "none":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if c.ESPY.PollAttempts < 1 {
		problems = append(problems, "espy.poll_attempts must be >= 1")
	}
	if c.ESPY.PollInterval < 0 || c.ESPY.MinInterval < 0 {
		problems = append(problems, "espy intervals must be >= 0")
	}
	if c.Hyperbrowser.Concurrency < 1 {
		problems = append(problems, "hyperbrowser.concurrency must be >= 1")
	}
	if c.Scrape.MaxURLsPerRequest < 1 {
		problems = append(problems, "scrape.max_urls_per_request must be >= 1")
	}
	if c.LinkCache.TTL <= 0 {
		problems = append(problems, "link_cache.ttl must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}
