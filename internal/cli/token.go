package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
)

// NewTokenCmd mints an author bearer token signed with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an author bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = config.Duration(cfg.Auth.TokenTTL, 24*time.Hour)
			}
			token, err := auth.New(cfg.Auth.Secret).Mint(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "author", "subject claim of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl, then 24h)")
	return cmd
}
