package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/session"
)

// NewTokenCmd creates the token command
func NewTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session join token",
		Long:  "Mint a room-join token signed with the configured session secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.SessionJoinSecret == "" {
				return fmt.Errorf("SESSION_JOIN_SECRET is not configured")
			}
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			token, err := session.MintJoinToken(userID, cfg.SessionJoinSecret, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to mint the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
