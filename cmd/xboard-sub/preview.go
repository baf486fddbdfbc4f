package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
	"github.com/creamcroissant/xboard-sub/internal/tui"
)

type previewOptions struct {
	Token     string
	UserAgent string
	Flag      string
	Lang      string
	Fixture   string
}

func init() {
	var opts previewOptions
	var previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Render a subscription for a token and user agent",
		Long: `Render the subscription document a client would receive.
With --fixture the user and servers are loaded from a YAML file into an in-memory database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dbPath := cfg.DB.Path
			if opts.Fixture != "" {
				dbPath = ":memory:"
			}
			db, err := openDatabase(cmd.Context(), dbPath, logging.Discard())
			if err != nil {
				return err
			}
			defer db.Close()
			st, err := buildStack(db, cfg, logging.Discard())
			if err != nil {
				return err
			}

			if opts.Fixture != "" {
				fixture, err := loadFixture(opts.Fixture)
				if err != nil {
					return err
				}
				token, err := fixture.seed(cmd.Context(), st.store, cfg.Subscribe.Location(), time.Now())
				if err != nil {
					return err
				}
				if opts.Token == "" {
					opts.Token = token
				}
				if _, err := st.heartbeat.Sync(cmd.Context()); err != nil {
					return err
				}
			}

			preview, err := renderPreview(cmd.Context(), st, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderPreview(*preview))
			return nil
		},
	}
	previewCmd.Flags().StringVar(&opts.Token, "token", "", "subscription token (default: fixture user)")
	previewCmd.Flags().StringVar(&opts.UserAgent, "ua", "", "client User-Agent")
	previewCmd.Flags().StringVar(&opts.Flag, "flag", "", "client flag query parameter")
	previewCmd.Flags().StringVar(&opts.Lang, "lang", "", "language for status headers")
	previewCmd.Flags().StringVar(&opts.Fixture, "fixture", "", "YAML fixture with user, plan and servers")
	rootCmd.AddCommand(previewCmd)
}

func renderPreview(ctx context.Context, st *stack, opts previewOptions) (*tui.Preview, error) {
	user, err := st.users.FindByToken(ctx, opts.Token)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	res := st.subscription.Subscribe(ctx, user, service.SubscriptionParams{
		Flag:      opts.Flag,
		UserAgent: opts.UserAgent,
		Lang:      opts.Lang,
	})
	return &tui.Preview{
		Client:      res.Client,
		Outcome:     string(res.Outcome),
		ContentType: res.ContentType,
		ETag:        res.ETag,
		Headers:     res.Headers,
		Payload:     res.Payload,
	}, nil
}
