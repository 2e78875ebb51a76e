package cli

import (
	"fmt"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/infra/memory"
	"github.com/spf13/cobra"
)

// NewUserAddCmd provisions an account; the service itself never signs users up.
func NewUserAddCmd(configPath *string) *cobra.Command {
	var id, name, password string
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user with a bcrypt-hashed password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			b, err := openBackend(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			auth := app.NewAuthService(b.store, memory.NewSessionStore(0), cfg.Auth.BcryptCost, log)
			user, err := auth.Register(cmd.Context(), id, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.ID, user.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id (login name)")
	cmd.Flags().StringVar(&name, "name", "", "display name, defaults to the id")
	cmd.Flags().StringVar(&password, "password", "", "plaintext password")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
