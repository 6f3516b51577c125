package tools

import (
	"context"
	"strings"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/github"
)

// GitHub reads the public profile page for params.username.
type GitHub struct {
	base
	client *github.Client
	cfg    config.ToolToggle
}

// NewGitHub creates the GitHub profile tool.
func NewGitHub(client *github.Client, cfg config.ToolToggle) *GitHub {
	return &GitHub{
		base:   base{name: NameGitHub, source: SourceGitHub, stage: model.StageShallow},
		client: client,
		cfg:    cfg,
	}
}

// CanHandle requires a username.
func (t *GitHub) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && p.Has(model.FieldUsername)
}

// Execute fetches the profile page.
func (t *GitHub) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	username := strings.TrimPrefix(p.String(model.FieldUsername), "@")
	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	prof, err := t.client.FetchProfile(ctx, username)
	if err != nil {
		return t.fail(errorString(ctx, err), map[string]any{"username": username}), nil
	}
	raw := map[string]any{
		"username": prof.Username,
		"name":     prof.Name,
		"bio":      prof.Bio,
		"location": prof.Location,
	}
	if prof.Followers != nil {
		raw["followers"] = *prof.Followers
	}
	if prof.Following != nil {
		raw["following"] = *prof.Following
	}
	return model.NewResult(t.source, raw), nil
}

// GitHubExtras reads the secondary profile fields (website, company,
// social links, organizations). Disabled by default.
type GitHubExtras struct {
	base
	client *github.Client
	cfg    config.ToolToggle
}

// NewGitHubExtras creates the GitHub extras tool.
func NewGitHubExtras(client *github.Client, cfg config.ToolToggle) *GitHubExtras {
	return &GitHubExtras{
		base:   base{name: NameGitHubExtras, source: SourceGitHubExtras, stage: model.StageShallow},
		client: client,
		cfg:    cfg,
	}
}

// CanHandle requires the tool to be enabled and a username.
func (t *GitHubExtras) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && p.Has(model.FieldUsername)
}

// Execute fetches the profile page and keeps the extras fields.
func (t *GitHubExtras) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	username := strings.TrimPrefix(p.String(model.FieldUsername), "@")
	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	prof, err := t.client.FetchProfile(ctx, username)
	if err != nil {
		return t.fail(errorString(ctx, err), map[string]any{"username": username}), nil
	}
	orgs := prof.Organizations
	if orgs == nil {
		orgs = []string{}
	}
	return model.NewResult(t.source, map[string]any{
		"username":      prof.Username,
		"website":       prof.Website,
		"domain":        prof.Domain,
		"company":       prof.Company,
		"location":      prof.Location,
		"email":         prof.Email,
		"twitter":       prof.Twitter,
		"linkedin":      prof.LinkedIn,
		"organizations": orgs,
	}), nil
}
