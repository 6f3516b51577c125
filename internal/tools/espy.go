package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/pkg/espy"
)

// ESPY runs one ESPY lookup endpoint. The five deep-stage lookups differ
// only in endpoint, applicability, and how the subject is chosen.
type ESPY struct {
	base
	client   *espy.Client
	endpoint string
	handle   func(p model.Params) bool
	input    func(p model.Params) espy.Input
}

func newESPY(name, source, endpoint string, client *espy.Client, handle func(model.Params) bool, input func(model.Params) espy.Input) *ESPY {
	return &ESPY{
		base:     base{name: name, source: source, stage: model.StageDeep},
		client:   client,
		endpoint: endpoint,
		handle:   handle,
		input:    input,
	}
}

func value(field string) func(model.Params) espy.Input {
	return func(p model.Params) espy.Input { return espy.Input{Value: p.String(field)} }
}

// NewESPYEmail creates the combined email lookup.
func NewESPYEmail(client *espy.Client) *ESPY {
	return newESPY(NameESPYEmail, SourceESPYEmail, espy.EndpointEmail, client,
		func(p model.Params) bool { return p.Has(model.FieldEmail) },
		value(model.FieldEmail))
}

// NewESPYPhone creates the combined phone lookup.
func NewESPYPhone(client *espy.Client) *ESPY {
	return newESPY(NameESPYPhone, SourceESPYPhone, espy.EndpointPhone, client,
		func(p model.Params) bool { return p.Has(model.FieldPhone) },
		value(model.FieldPhone))
}

// NewESPYName creates the combined name lookup.
func NewESPYName(client *espy.Client) *ESPY {
	return newESPY(NameESPYName, SourceESPYName, espy.EndpointName, client,
		func(p model.Params) bool { return p.Has(model.FieldName) },
		value(model.FieldName))
}

// NewESPYDeepweb creates the breach scan lookup, keyed by email or else
// phone.
func NewESPYDeepweb(client *espy.Client) *ESPY {
	return newESPY(NameESPYDeepweb, SourceESPYDeepweb, espy.EndpointDeepweb, client,
		func(p model.Params) bool { return p.Has(model.FieldEmail) || p.Has(model.FieldPhone) },
		func(p model.Params) espy.Input {
			if v := p.String(model.FieldEmail); v != "" {
				return espy.Input{Value: v}
			}
			return espy.Input{Value: p.String(model.FieldPhone)}
		})
}

// NewESPYCourtRecords creates the US court records search. The keyphrase
// is the name followed by the location when known.
func NewESPYCourtRecords(client *espy.Client) *ESPY {
	return newESPY(NameESPYCourtRecords, SourceESPYCourtRecords, espy.EndpointCourtRecords, client,
		func(p model.Params) bool {
			return p.Has(model.FieldName) && strings.EqualFold(p.String(model.FieldCountry), "US")
		},
		func(p model.Params) espy.Input {
			phrase := strings.TrimSpace(p.String(model.FieldName) + " " + p.String(model.FieldLocation))
			return espy.Input{Keyphrase: phrase}
		})
}

// CanHandle requires an API key and the endpoint's subject field.
func (t *ESPY) CanHandle(p model.Params) bool {
	return t.client != nil && t.client.Configured() && t.handle(p)
}

// Execute starts the lookup and polls it to completion. A poll timeout
// keeps the request id and the last observed poll response.
func (t *ESPY) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	in := t.input(p)
	resp, err := t.client.Lookup(ctx, t.endpoint, in)
	if err != nil {
		var pte *espy.PollTimeoutError
		if errors.As(err, &pte) {
			res := t.fail("timeout", map[string]any{
				"request_id":    pte.RequestID,
				"attempts":      pte.Attempts,
				"last_response": pte.LastResponse,
			})
			return res.WithMeta("request_id", pte.RequestID), nil
		}
		return t.fail(err.Error(), nil), nil
	}
	return model.NewResult(t.source, resp), nil
}
