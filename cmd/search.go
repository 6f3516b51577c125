package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osint-cli/internal/model"
)

var searchQuery model.SearchQuery

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a shallow search and print candidate identities",
	Example: `  osint-cli search --email ada@example.com
  osint-cli search --name "Ada Lovelace" --context "mathematician in London"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if searchQuery.Empty() {
			return eris.New("search: at least one of --name, --email, --phone, --username, --location, --context is required")
		}
		if err := cfg.Validate("search"); err != nil {
			return err
		}
		noStore, _ := cmd.Flags().GetBool("no-store")

		env, err := initEnv(cmd.Context(), !noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Orchestrator.Shallow(cmd.Context(), searchQuery)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		return printJSON(os.Stdout, resp)
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchQuery.Name, "name", "", "full name")
	f.StringVar(&searchQuery.Email, "email", "", "email address")
	f.StringVar(&searchQuery.Phone, "phone", "", "phone number")
	f.StringVar(&searchQuery.Username, "username", "", "account handle")
	f.StringVar(&searchQuery.Location, "location", "", "free-text location")
	f.StringVar(&searchQuery.FreeTextContext, "context", "", "free-text context to extract fields and a search hint from")
	f.Bool("no-store", false, "do not record the run")
	rootCmd.AddCommand(searchCmd)
}
