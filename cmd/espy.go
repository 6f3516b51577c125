package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var espyCmd = &cobra.Command{
	Use:   "espy",
	Short: "Inspect ESPY lookup requests",
}

var espyPollCmd = &cobra.Command{
	Use:   "poll <request-id>",
	Short: "Fetch the current status document of an ESPY request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.ESPY.Configured() {
			return eris.New("espy poll: OSINT_ESPY_KEY is not set")
		}
		resp, err := env.ESPY.Poll(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "espy poll")
		}
		return printJSON(os.Stdout, resp)
	},
}

func init() {
	espyCmd.AddCommand(espyPollCmd)
	rootCmd.AddCommand(espyCmd)
}
