package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/repository/sqlite"
	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
	"github.com/creamcroissant/xboard-sub/internal/tui"
)

const bytesPerGiB = int64(1024 * 1024 * 1024)

func init() {
	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Subscription user management",
	}

	var (
		email      string
		planID     int64
		groupID    int64
		transferGB int64
		expireDate string
	)
	var addCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a subscription user and print the subscribe link",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			email = strings.TrimSpace(email)
			if !govalidator.IsEmail(email) {
				return fmt.Errorf("invalid email %q / 邮箱格式错误", email)
			}
			expiredAt, err := parseExpireDate(expireDate, cfg.Subscribe.Location())
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), cfg.DB.Path, logging.Discard())
			if err != nil {
				return err
			}
			defer db.Close()
			st, err := buildStack(db, cfg, logging.Discard())
			if err != nil {
				return err
			}

			creds := service.NewUserCredentials()
			user, err := st.store.Users().Create(cmd.Context(), &repository.User{
				UUID:           creds.UUID,
				Token:          creds.Token,
				Email:          email,
				PlanID:         planID,
				GroupID:        groupID,
				ExpiredAt:      expiredAt,
				TransferEnable: transferGB * bytesPerGiB,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User created: id=%d email=%s\n", user.ID, user.Email)
			fmt.Fprintf(out, "UUID:  %s\n", user.UUID)
			fmt.Fprintf(out, "Token: %s\n", user.Token)
			fmt.Fprintf(out, "Link:  %s\n", service.SubscribeURL(cfg.Subscribe, user.Token, user.ID, time.Now()))
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "user email (required)")
	addCmd.Flags().Int64Var(&planID, "plan-id", 0, "plan id")
	addCmd.Flags().Int64Var(&groupID, "group-id", 0, "server group id")
	addCmd.Flags().Int64Var(&transferGB, "transfer-gb", 100, "traffic quota in GiB")
	addCmd.Flags().StringVar(&expireDate, "expire", "", "expiry date YYYY-MM-DD (empty = never)")
	_ = addCmd.MarkFlagRequired("email")
	userCmd.AddCommand(addCmd)

	userCmd.AddCommand(&cobra.Command{
		Use:   "link <email>",
		Short: "Print the subscribe link of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg.DB.Path, logging.Discard())
			if err != nil {
				return err
			}
			defer db.Close()
			st, err := buildStack(db, cfg, logging.Discard())
			if err != nil {
				return err
			}
			user, err := st.store.Users().FindByEmail(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.SubscribeURL(cfg.Subscribe, user.Token, user.ID, time.Now()))
			return nil
		},
	})

	var logLimit int
	var logsCmd = &cobra.Command{
		Use:   "logs <email>",
		Short: "Show recent subscription fetches of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg.DB.Path, logging.Discard())
			if err != nil {
				return err
			}
			defer db.Close()
			store := sqlite.NewStore(db)
			user, err := store.Users().FindByEmail(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			logs, err := store.SubscriptionLogs().ListByUser(cmd.Context(), user.ID, logLimit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderSubscriptionLogs(logs, cfg.Subscribe.Location()))
			return nil
		},
	}
	logsCmd.Flags().IntVar(&logLimit, "limit", 20, "number of entries")
	userCmd.AddCommand(logsCmd)

	rootCmd.AddCommand(userCmd)
}

// parseExpireDate 把 YYYY-MM-DD 解析为当天结束前一秒的时间戳，空值表示长期有效。
func parseExpireDate(raw string, loc *time.Location) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return 0, fmt.Errorf("invalid expire date %q: %w", raw, err)
	}
	return day.AddDate(0, 0, 1).Unix() - 1, nil
}
