// Package tool defines the capability interface implemented by every
// lookup source and the registry that dispatches them.
package tool

import (
	"context"

	"github.com/sells-group/osint-cli/internal/model"
)

// Tool is a capability-typed unit of work against one external source.
type Tool interface {
	// Name returns the stable tool identifier (e.g. "holehe_cli").
	Name() string
	// Stage returns the pipeline stage the tool belongs to.
	Stage() model.Stage
	// CanHandle reports whether the tool can run for params. It must not
	// perform I/O. Tools lacking credentials return false.
	CanHandle(params model.Params) bool
	// Execute runs the lookup. Source-level failures are reported inside
	// the returned ToolResult; a returned error is converted by the
	// registry into a synthetic error record.
	Execute(ctx context.Context, params model.Params) (model.ToolResult, error)
}

// Observer receives one callback per finished tool execution.
type Observer interface {
	ObserveTool(exec model.Execution, stage model.Stage)
}
