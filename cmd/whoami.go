package cmd

import (
	"fmt"
	"time"

	"github.com/clarityhire/clarity/internal/session"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show what the stored credential says about the signed in user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup()
		defer e.close()

		ctx, cancel := e.commandContext()
		defer cancel()

		if err := e.session.Require(); err != nil {
			e.fatal(ctx, "reading credential", err)
		}
		credential, _ := e.session.Credential()

		claims, err := session.Inspect(credential, time.Now())
		if err != nil {
			e.fatal(ctx, "reading credential", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Subject: %s\n", claims.Subject)
		if claims.Role != "" {
			fmt.Fprintf(out, "Role:    %s\n", claims.Role)
		}
		if !claims.ExpiresAt.IsZero() {
			state := "valid"
			if claims.Expired {
				state = "expired"
			}
			fmt.Fprintf(out, "Expires: %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
