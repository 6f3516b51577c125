package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/osint-cli/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Ask the model for an advisory tool plan",
	Long:  "Generates a plan for the shallow or deep stage. With --execute the scrape steps are run under the host allowlist.",
}

var planInput model.Candidate

var planSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Plan a shallow search",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlan(cmd, model.StageShallow)
	},
}

var planEnrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Plan a deep search for one candidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlan(cmd, model.StageDeep)
	},
}

func runPlan(cmd *cobra.Command, stage model.Stage) error {
	if err := cfg.Validate("plan"); err != nil {
		return err
	}
	execute, _ := cmd.Flags().GetBool("execute")

	env, err := initEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer env.Close()

	p := env.Planner.Generate(cmd.Context(), stage, planInput.Params())
	if !execute {
		return printJSON(os.Stdout, p)
	}
	return printJSON(os.Stdout, map[string]any{
		"plan":    p,
		"results": env.Executor.Execute(cmd.Context(), p),
	})
}

func init() {
	for _, c := range []*cobra.Command{planSearchCmd, planEnrichCmd} {
		f := c.Flags()
		f.StringVar(&planInput.Name, "name", "", "full name")
		f.StringVar(&planInput.Email, "email", "", "email address")
		f.StringVar(&planInput.Phone, "phone", "", "phone number")
		f.StringVar(&planInput.Username, "username", "", "account handle")
		f.StringVar(&planInput.Location, "location", "", "free-text location")
		f.Bool("execute", false, "run the plan's scrape steps")
		planCmd.AddCommand(c)
	}
	rootCmd.AddCommand(planCmd)
}
