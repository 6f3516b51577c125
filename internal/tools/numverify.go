package tools

import (
	"context"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/numverify"
)

// Numverify validates params.phone.
type Numverify struct {
	base
	client *numverify.Client
	cfg    config.ToolToggle
}

// NewNumverify creates the phone validation tool.
func NewNumverify(client *numverify.Client, cfg config.ToolToggle) *Numverify {
	return &Numverify{
		base:   base{name: NameNumverify, source: SourceNumverify, stage: model.StageShallow},
		client: client,
		cfg:    cfg,
	}
}

// CanHandle requires a phone and an access key.
func (t *Numverify) CanHandle(p model.Params) bool {
	return t.cfg.Enabled && t.client != nil && t.client.Configured() && p.Has(model.FieldPhone)
}

// Execute returns the validation document as raw data.
func (t *Numverify) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	ctx, cancel := withTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	doc, err := t.client.Validate(ctx, p.String(model.FieldPhone))
	if err != nil {
		return t.fail(errorString(ctx, err), nil), nil
	}
	return model.NewResult(t.source, doc), nil
}
