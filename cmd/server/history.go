package main

import (
	"context"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/docify-community/internal/app"
	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/core"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent community messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStores(cmd, opts, func(ctx context.Context, cfg *config.Config, stores *app.Stores) error {
				if limit <= 0 {
					limit = cfg.HistoryLimit
				}
				messages := core.NewMessageStore(stores.Messages, stores.Users, cfg.MaxTextBytes)
				recent, err := messages.Recent(ctx, limit)
				if err != nil {
					return err
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"ID", "Time", "Sender", "Text"})
				table.SetAutoWrapText(false)
				table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
				table.SetAlignment(tablewriter.ALIGN_LEFT)
				table.SetBorder(false)
				for _, m := range recent {
					table.Append([]string{
						strconv.FormatInt(m.ID, 10),
						m.CreatedAt.Local().Format(time.DateTime),
						senderLabel(m.Sender),
						m.Text,
					})
				}
				table.Render()
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of messages (default history_limit)")
	return cmd
}

func senderLabel(s core.Sender) string {
	switch {
	case s.DisplayName != "":
		return s.DisplayName
	case s.Username != "":
		return s.Username
	default:
		return s.ID + " (deleted)"
	}
}
