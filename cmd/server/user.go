package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/docify-community/internal/app"
	"github.com/vovakirdan/docify-community/internal/auth"
	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/store"
	"github.com/vovakirdan/docify-community/internal/utils"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}

	var sender store.Sender
	upsert := &cobra.Command{
		Use:   "upsert",
		Short: "Create a user or update its display fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sender.Username == "" {
				return errors.New("--username is required")
			}
			if sender.ID == "" {
				sender.ID = utils.NewID()
			}
			return withStores(cmd, opts, func(ctx context.Context, _ *config.Config, stores *app.Stores) error {
				if err := stores.Users.UpsertSender(ctx, &sender); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sender.ID)
				return nil
			})
		},
	}
	upsert.Flags().StringVar(&sender.ID, "id", "", "user id (generated when empty)")
	upsert.Flags().StringVar(&sender.Username, "username", "", "unique username")
	upsert.Flags().StringVar(&sender.DisplayName, "display-name", "", "display name")
	upsert.Flags().StringVar(&sender.AvatarURL, "avatar-url", "", "avatar URL")

	cmd.AddCommand(upsert)
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user-id is required")
			}
			return withStores(cmd, opts, func(ctx context.Context, cfg *config.Config, stores *app.Stores) error {
				sender, err := stores.Users.LookupSender(ctx, userID)
				if err != nil {
					return err
				}
				token, err := auth.GenerateToken(&auth.JWTConfig{
					Secret:   []byte(cfg.JWTSecret),
					Issuer:   cfg.JWTIssuer,
					Audience: cfg.JWTAudience,
					TTL:      ttl,
				}, sender.ID, sender.Username)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "id of the user the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
