package cmd

import (
	"context"
	"fmt"

	"github.com/clarityhire/clarity/internal/clarity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	demoEmail    = "demo@clarityhire.com"
	demoPassword = "demo123"
	demoName     = "Demo Recruiter"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the credential for later commands",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		login(cmd)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("email", "e", "", "account email. Asked interactively when unset.")
	loginCmd.Flags().String("password-file", "", "file with the password. CLARITY_PASSWORD is used when unset.")
	loginCmd.Flags().Bool("demo", false, "sign in with the demo account, creating it on first use")
}

func login(cmd *cobra.Command) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		loginDemo(ctx, cmd, e)
		return
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		var err error
		if email, err = promptText("Email", ""); err != nil {
			e.fatal(ctx, "reading email", err)
		}
	}

	passwordFile, _ := cmd.Flags().GetString("password-file")
	password, err := resolvePassword(passwordFile)
	if err != nil {
		e.fatal(ctx, "reading password", err)
	}

	if _, err := e.client.Login(ctx, email, password); err != nil {
		e.fatal(ctx, "signing in", err)
	}

	e.logger.Info("signed in", zap.String("email", email))
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
}

// loginDemo signs in with the demo account. When that fails the account is
// registered as a recruiter and the sign in is retried once.
func loginDemo(ctx context.Context, cmd *cobra.Command, e *env) {
	_, err := e.client.Login(ctx, demoEmail, demoPassword)
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", demoEmail)
		return
	}
	e.logger.Info("demo sign in failed, registering the demo account", zap.Error(err))

	_, err = e.client.Register(ctx, clarity.Registration{
		Name:     demoName,
		Email:    demoEmail,
		Password: demoPassword,
		Role:     clarity.RoleRecruiter,
	})
	if err != nil {
		e.fatal(ctx, "registering the demo account", err)
	}

	if _, err := e.client.Login(ctx, demoEmail, demoPassword); err != nil {
		e.fatal(ctx, "signing in with the demo account", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", demoEmail)
}
