package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup()
		defer e.close()

		if e.client.Logout(context.Background()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
