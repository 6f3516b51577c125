package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osint-cli/internal/model"
)

var (
	enrichCandidate model.Candidate
	enrichLinkedIn  string
	enrichX         string
	enrichScrape    []string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run a deep search on one candidate and print the judged profile",
	Example: `  osint-cli enrich --name "Ada Lovelace" --email ada@example.com
  osint-cli enrich --username ada --scrape-url https://github.com/ada`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		noStore, _ := cmd.Flags().GetBool("no-store")

		env, err := initEnv(cmd.Context(), !noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Orchestrator.Deep(cmd.Context(), enrichCandidate, enrichExtra())
		if err != nil {
			return eris.Wrap(err, "enrich")
		}
		return printJSON(os.Stdout, resp)
	},
}

// enrichExtra collects the optional verification and scrape inputs.
func enrichExtra() model.Params {
	p := model.Params{}
	p.SetDefault(model.FieldLinkedInBestURL, enrichLinkedIn)
	p.SetDefault(model.FieldXBestURL, enrichX)
	if len(enrichScrape) > 0 {
		p[model.FieldHyperbrowser] = map[string]any{
			"scrape": map[string]any{"urls": enrichScrape},
		}
	}
	return p
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichCandidate.Name, "name", "", "candidate name")
	f.StringVar(&enrichCandidate.Email, "email", "", "candidate email")
	f.StringVar(&enrichCandidate.Phone, "phone", "", "candidate phone")
	f.StringVar(&enrichCandidate.Username, "username", "", "candidate handle")
	f.StringVar(&enrichCandidate.Location, "location", "", "candidate location")
	f.StringVar(&enrichLinkedIn, "linkedin-url", "", "LinkedIn profile URL to verify")
	f.StringVar(&enrichX, "x-url", "", "X profile URL to verify")
	f.StringSliceVar(&enrichScrape, "scrape-url", nil, "URL to scrape with Hyperbrowser (repeatable)")
	f.Bool("no-store", false, "do not record the run")
	rootCmd.AddCommand(enrichCmd)
}
