package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/protocol"
)

// NewProtocolManager 注册全部订阅构建器；subscribe.clash_template 指向 YAML 模板文件。
func NewProtocolManager(cfg config.SubscribeConfig, logger *slog.Logger) (*protocol.Manager, error) {
	var clashTemplate string
	if path := strings.TrimSpace(cfg.ClashTemplate); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read clash template: %w", err)
		}
		clashTemplate = string(raw)
	}
	general := protocol.NewGeneralBuilder()
	return protocol.NewManager(
		[]protocol.Builder{protocol.NewClashBuilder(clashTemplate), general},
		protocol.WithDefault(general),
		protocol.WithSingbox(protocol.NewSingboxBuilder(), protocol.NewSingboxLegacyBuilder()),
		protocol.WithLogger(logger),
	), nil
}
