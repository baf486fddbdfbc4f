// 文件路径: internal/protocol/transport.go
// 模块说明: 传输层配置（tcp/ws/grpc/kcp/httpupgrade/xhttp），把嵌套的 network_settings 写入编码器的字段表。
package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
)

// 支持的传输类型。
const (
	NetworkTCP         = "tcp"
	NetworkWS          = "ws"
	NetworkGRPC        = "grpc"
	NetworkKCP         = "kcp"
	NetworkHTTPUpgrade = "httpupgrade"
	NetworkXHTTP       = "xhttp"
)

// StringList 兼容标量和数组两种写法，例如 "Host": "a.com" 与 "Host": ["a.com"]。
type StringList []string

// UnmarshalJSON 接受字符串、字符串数组或数字。
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, scalarString(item))
		}
		*l = out
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = StringList{scalarString(single)}
	return nil
}

// First 取列表的第一个元素，空列表返回空串。
func (l StringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// HTTPRequest tcp 伪装 http 时的请求描述。
type HTTPRequest struct {
	Path    StringList            `json:"path"`
	Headers map[string]StringList `json:"headers"`
}

// HeaderSettings tcp / kcp 的 header 伪装。
type HeaderSettings struct {
	Type    string       `json:"type"`
	Request *HTTPRequest `json:"request"`
}

// NetworkSettings 是 network_settings 的强类型表示，覆盖所有传输类型用到的字段。
type NetworkSettings struct {
	Path        string                `json:"path"`
	Host        string                `json:"host"`
	Headers     map[string]StringList `json:"headers"`
	ServiceName string                `json:"serviceName"`
	Header      *HeaderSettings       `json:"header"`
	Seed        string                `json:"seed"`
	Mode        string                `json:"mode"`
	Extra       json.RawMessage       `json:"extra"`
}

func (n *NetworkSettings) headerHost() string {
	if n == nil || n.Headers == nil {
		return ""
	}
	return n.Headers["Host"].First()
}

// fieldSetter 由编码器的有序字段表实现。
type fieldSetter interface {
	Set(key, value string)
}

// ConfigureTransport 按 network 把传输配置写入 dst。settings 为 nil 时不做任何修改。
func ConfigureTransport(network string, settings *NetworkSettings, dst fieldSetter) {
	if settings == nil || dst == nil {
		return
	}
	switch strings.ToLower(strings.TrimSpace(network)) {
	case NetworkTCP:
		configureTCP(settings, dst)
	case NetworkWS:
		if settings.Path != "" {
			dst.Set("path", settings.Path)
		}
		if host := settings.headerHost(); host != "" {
			dst.Set("host", host)
		}
	case NetworkGRPC:
		if settings.ServiceName != "" {
			dst.Set("serviceName", settings.ServiceName)
		}
	case NetworkKCP:
		headerType := "none"
		if settings.Header != nil && settings.Header.Type != "" {
			headerType = settings.Header.Type
		}
		dst.Set("headerType", headerType)
		if settings.Seed != "" {
			dst.Set("seed", settings.Seed)
		}
	case NetworkHTTPUpgrade:
		if settings.Path != "" {
			dst.Set("path", settings.Path)
		}
		if settings.Host != "" {
			dst.Set("host", settings.Host)
		}
	case NetworkXHTTP:
		if settings.Path != "" {
			dst.Set("path", settings.Path)
		}
		if settings.Host != "" {
			dst.Set("host", settings.Host)
		}
		mode := settings.Mode
		if mode == "" {
			mode = "auto"
		}
		dst.Set("mode", mode)
		if extra, ok := compactJSON(settings.Extra); ok {
			dst.Set("extra", extra)
		}
	}
}

func configureTCP(settings *NetworkSettings, dst fieldSetter) {
	header := settings.Header
	if header == nil || header.Type != "http" {
		return
	}
	dst.Set("headerType", "http")
	if header.Request == nil {
		return
	}
	if host := header.Request.Headers["Host"]; len(host) > 0 {
		dst.Set("host", host.First())
	}
	if len(header.Request.Path) > 0 {
		dst.Set("path", header.Request.Path.First())
	}
}

func compactJSON(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", false
	}
	return buf.String(), true
}
