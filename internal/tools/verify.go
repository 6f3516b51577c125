package tools

import (
	"context"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/scrapingdog"
)

// LinkedInVerify renders the profile URL found by the LinkedIn finder and
// reads the identity fields from it.
type LinkedInVerify struct {
	base
	client  *scrapingdog.Client
	cfg     config.ToolToggle
	country string
}

// NewLinkedInVerify creates the LinkedIn verification tool. country is
// the proxy location used when params carry none.
func NewLinkedInVerify(client *scrapingdog.Client, cfg config.ToolToggle, country string) *LinkedInVerify {
	if country == "" {
		country = "US"
	}
	return &LinkedInVerify{
		base:    base{name: NameLinkedInVerify, source: SourceLinkedInVerify, stage: model.StageDeep},
		client:  client,
		cfg:     cfg,
		country: country,
	}
}

// CanHandle requires the tool to be enabled, a ScrapingDog key, and a
// discovered LinkedIn URL.
func (t *LinkedInVerify) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && t.client.Configured() && p.Has(model.FieldLinkedInBestURL)
}

// Execute scrapes and parses the profile page.
func (t *LinkedInVerify) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	target := p.String(model.FieldLinkedInBestURL)
	country := p.String(model.FieldCountry)
	if country == "" {
		country = t.country
	}

	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	body, err := t.client.Scrape(ctx, target, country)
	if err != nil {
		return t.fail(errorString(ctx, err), map[string]any{"url": target}), nil
	}
	prof, err := scrapingdog.ParseLinkedIn(body)
	if err != nil {
		return t.fail(err.Error(), map[string]any{"url": target}), nil
	}
	return model.NewResult(t.source, map[string]any{
		"url":      target,
		"name":     prof.Name,
		"headline": prof.Headline,
		"location": prof.Location,
		"company":  prof.Company,
		"photo":    prof.Photo,
	}), nil
}

// XVerify fetches the parsed X profile for the URL found by the X finder.
type XVerify struct {
	base
	client *scrapingdog.Client
	cfg    config.ToolToggle
}

// NewXVerify creates the X verification tool.
func NewXVerify(client *scrapingdog.Client, cfg config.ToolToggle) *XVerify {
	return &XVerify{
		base:   base{name: NameXVerify, source: SourceXVerify, stage: model.StageDeep},
		client: client,
		cfg:    cfg,
	}
}

// CanHandle requires the tool to be enabled, a ScrapingDog key, and a
// discovered X URL.
func (t *XVerify) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && t.client.Configured() && p.Has(model.FieldXBestURL)
}

// Execute returns the parsed profile document as raw data.
func (t *XVerify) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	target := p.String(model.FieldXBestURL)

	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	doc, err := t.client.XProfile(ctx, target)
	if err != nil {
		return t.fail(errorString(ctx, err), map[string]any{"url": target}), nil
	}
	return model.NewResult(t.source, doc), nil
}
