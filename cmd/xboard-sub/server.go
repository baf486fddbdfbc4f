package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-sub/internal/protocol"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
	"github.com/creamcroissant/xboard-sub/internal/tui"
)

var serverTypes = []string{"vmess", "vless", "shadowsocks", "trojan", "hysteria"}

// serverInput 是 server add 的参数。
type serverInput struct {
	Type     string
	Name     string
	Host     string
	Port     string
	Groups   string
	Sort     int64
	Settings string
	Hidden   bool
}

// toRecord 校验参数并转换为节点记录。
func (in serverInput) toRecord() (*repository.Server, error) {
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	if !govalidator.IsIn(typ, serverTypes...) {
		return nil, fmt.Errorf("unsupported server type %q / 不支持的节点类型", in.Type)
	}
	host := strings.TrimSpace(in.Host)
	if !govalidator.IsHost(host) {
		return nil, fmt.Errorf("invalid host %q / 节点地址格式错误", in.Host)
	}
	port := strings.TrimSpace(in.Port)
	if !govalidator.IsPort(port) {
		if _, _, ok := protocol.ParsePortRange(port); !ok {
			return nil, fmt.Errorf("invalid port %q / 端口格式错误", in.Port)
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = host
	}

	groups := make([]int64, 0)
	for _, part := range strings.Split(in.Groups, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !govalidator.IsInt(part) {
			return nil, fmt.Errorf("invalid group id %q / 权限组 ID 错误", part)
		}
		id, _ := strconv.ParseInt(part, 10, 64)
		groups = append(groups, id)
	}
	groupJSON, err := json.Marshal(groups)
	if err != nil {
		return nil, err
	}

	settings := strings.TrimSpace(in.Settings)
	if settings == "" {
		settings = "{}"
	}
	if !strings.HasPrefix(settings, "{") || !govalidator.IsJSON(settings) {
		return nil, fmt.Errorf("settings must be a JSON object / settings 必须是 JSON")
	}

	return &repository.Server{
		Type:     typ,
		Name:     name,
		Host:     host,
		Port:     port,
		GroupIDs: groupJSON,
		Show:     !in.Hidden,
		Sort:     in.Sort,
		Settings: json.RawMessage(settings),
	}, nil
}

func init() {
	var serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Server (node) management",
	}

	var input serverInput
	var addCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := input.toRecord()
			if err != nil {
				return err
			}
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
			if err := st.store.Servers().Create(cmd.Context(), record); err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server created: id=%d type=%s %s:%s\n", record.ID, record.Type, record.Host, record.Port)
			return nil
		},
	}
	addCmd.Flags().StringVar(&input.Type, "type", "", "server type: "+strings.Join(serverTypes, "|"))
	addCmd.Flags().StringVar(&input.Name, "name", "", "display name (default host)")
	addCmd.Flags().StringVar(&input.Host, "host", "", "server host")
	addCmd.Flags().StringVar(&input.Port, "port", "", "port or port range like 20000-30000")
	addCmd.Flags().StringVar(&input.Groups, "groups", "", "comma separated group ids")
	addCmd.Flags().Int64Var(&input.Sort, "sort", 0, "sort order")
	addCmd.Flags().StringVar(&input.Settings, "settings", "{}", "protocol settings JSON")
	addCmd.Flags().BoolVar(&input.Hidden, "hidden", false, "create the server hidden")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("host")
	_ = addCmd.MarkFlagRequired("port")
	serverCmd.AddCommand(addCmd)

	serverCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List servers with their last heartbeat",
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
			servers, err := st.store.Servers().ListAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderServers(servers, st.infra.Liveness.Window(), time.Now()))
			return nil
		},
	})

	rootCmd.AddCommand(serverCmd)
}
