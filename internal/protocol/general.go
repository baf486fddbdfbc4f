// 文件路径: internal/protocol/general.go
// 模块说明: 通用订阅格式：每个节点一行 URI（CRLF 结尾），整体再做标准 Base64。
package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const lineBreak = "\r\n"

var (
	// ErrMissingType 节点缺少类型。
	ErrMissingType = errors.New("server type is empty / 节点类型为空")
	// ErrMissingIdentity 用户缺少 UUID。
	ErrMissingIdentity = errors.New("user identity is empty / 用户 UUID 为空")
)

// EncodeServer 按节点类型选择编码器，返回一行以 CRLF 结尾的 URI。
func EncodeServer(identity string, server Server) (string, error) {
	if strings.TrimSpace(server.Type) == "" {
		return "", ErrMissingType
	}
	if strings.TrimSpace(identity) == "" {
		return "", ErrMissingIdentity
	}
	switch strings.ToLower(server.Type) {
	case TypeVMess:
		return EncodeVMess(identity, server)
	case TypeVLESS:
		return EncodeVLESS(identity, server)
	case TypeShadowsocks:
		return EncodeShadowsocks(identity, server)
	case TypeTrojan:
		return EncodeTrojan(identity, server)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, server.Type)
	}
}

// EncodeLines 逐个编码节点，单个节点失败只跳过并记录，不影响其他节点。
func EncodeLines(req BuildRequest) []string {
	logger := req.logger()
	identity := ""
	if req.User != nil {
		identity = req.User.UUID
	}
	lines := make([]string, 0, len(req.Servers))
	for _, server := range req.Servers {
		line, err := EncodeServer(identity, server)
		if err != nil {
			if errors.Is(err, ErrUnsupportedType) {
				logger.Debug("skip server with unsupported type", "server_id", server.ID, "type", server.Type)
			} else {
				logger.Warn("skip server that failed to encode", "server_id", server.ID, "name", server.Name, "error", err)
			}
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// AssembleDocument 把多行 URI 拼接后做标准 Base64；没有任何行时返回空串。
func AssembleDocument(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(lines, "")))
}

// GeneralBuilder 通用格式构建器，也是未匹配任何客户端时的默认构建器。
type GeneralBuilder struct{}

// NewGeneralBuilder 创建通用格式构建器。
func NewGeneralBuilder() *GeneralBuilder {
	return &GeneralBuilder{}
}

func (b *GeneralBuilder) Flags() []string {
	return []string{"general"}
}

func (b *GeneralBuilder) Build(req BuildRequest) (*Result, error) {
	if len(req.Servers) == 0 {
		req.logger().Warn("no servers provided for subscription")
		return &Result{ContentType: "text/plain; charset=utf-8"}, nil
	}
	doc := AssembleDocument(EncodeLines(req))
	if doc == "" {
		req.logger().Warn("no valid server uri generated")
	}
	return &Result{
		Payload:     []byte(doc),
		ContentType: "text/plain; charset=utf-8",
		Headers:     buildUserHeaders(req.User, req.Lang, req.I18n),
	}, nil
}
