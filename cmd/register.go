package cmd

import (
	"fmt"

	"github.com/clarityhire/clarity/internal/clarity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		register(cmd)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringP("name", "n", "", "full name. Asked interactively when unset.")
	registerCmd.Flags().StringP("email", "e", "", "account email. Asked interactively when unset.")
	registerCmd.Flags().String("role", clarity.RoleCandidate, "account role: candidate or recruiter")
	registerCmd.Flags().String("password-file", "", "file with the password. CLARITY_PASSWORD is used when unset.")
}

func register(cmd *cobra.Command) {
	e := setup()
	defer e.close()

	ctx, cancel := e.commandContext()
	defer cancel()

	var err error
	r := clarity.Registration{}
	r.Name, _ = cmd.Flags().GetString("name")
	r.Email, _ = cmd.Flags().GetString("email")
	r.Role, _ = cmd.Flags().GetString("role")

	if r.Name == "" {
		if r.Name, err = promptText("Name", ""); err != nil {
			e.fatal(ctx, "reading name", err)
		}
	}
	if r.Email == "" {
		if r.Email, err = promptText("Email", ""); err != nil {
			e.fatal(ctx, "reading email", err)
		}
	}

	passwordFile, _ := cmd.Flags().GetString("password-file")
	if r.Password, err = resolvePassword(passwordFile); err != nil {
		e.fatal(ctx, "reading password", err)
	}

	user, err := e.client.Register(ctx, r)
	if err != nil {
		e.fatal(ctx, "registering", err)
	}

	e.logger.Info("account created", zap.String("email", user.Email), zap.String("role", user.Role))
	fmt.Fprintf(cmd.OutOrStdout(), "Account %s created with role %s. Run `clarity login` to sign in.\n", user.Email, user.Role)
}
