package model

// PlanStep is one proposed tool invocation.
type PlanStep struct {
	Tool      string         `json:"tool" validate:"required"`
	Inputs    map[string]any `json:"inputs"`
	Why       string         `json:"why,omitempty"`
	SuccessIf string         `json:"success_if,omitempty"`
}

// PlanBudget is advisory; execution enforces its own caps.
type PlanBudget struct {
	MaxSteps    int `json:"max_steps"`
	MaxRuntimeS int `json:"max_runtime_s"`
}

// Plan is an LLM-proposed sequence of steps.
type Plan struct {
	Steps    []PlanStep `json:"steps" validate:"dive"`
	FinishIf string     `json:"finish_if"`
	Budget   PlanBudget `json:"budget"`
}

// DefaultPlanBudget is the budget advertised to the planner.
func DefaultPlanBudget() PlanBudget {
	return PlanBudget{MaxSteps: 5, MaxRuntimeS: 60}
}
