// 文件路径: internal/protocol/singbox.go
// 模块说明: sing-box JSON 订阅。1.12 起 DNS 劫持改用 route rule action，旧版本继续使用 dns 出站。
package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	singboxSelectorTag = "proxy"
	singboxURLTestTag  = "auto"
	singboxDirectTag   = "direct"
	singboxDNSOutTag   = "dns-out"
	singboxTestURL     = "https://www.gstatic.com/generate_204"
)

// SingboxBuilder 渲染 sing-box 配置；legacy 为 true 时输出 1.12 之前的写法。
type SingboxBuilder struct {
	legacy bool
}

// NewSingboxBuilder 创建面向 sing-box 1.12 及以上版本的构建器。
func NewSingboxBuilder() *SingboxBuilder {
	return &SingboxBuilder{}
}

// NewSingboxLegacyBuilder 创建面向 1.12 以下版本的构建器。
func NewSingboxLegacyBuilder() *SingboxBuilder {
	return &SingboxBuilder{legacy: true}
}

func (b *SingboxBuilder) Flags() []string {
	if b.legacy {
		return []string{"sing-box-legacy"}
	}
	return []string{"sing-box", "singbox"}
}

func (b *SingboxBuilder) Build(req BuildRequest) (*Result, error) {
	identity := ""
	if req.User != nil {
		identity = req.User.UUID
	}
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	logger := req.logger()

	outbounds := make([]map[string]any, 0, len(req.Servers))
	tags := make([]string, 0, len(req.Servers))
	seen := newTagSet(singboxSelectorTag, singboxURLTestTag, singboxDirectTag, singboxDNSOutTag)
	for _, server := range req.Servers {
		outbound, err := singboxOutbound(identity, server)
		if err != nil {
			logger.Debug("skip server for sing-box", "server_id", server.ID, "type", server.Type, "error", err)
			continue
		}
		tag := seen.claim(server)
		outbound["tag"] = tag
		outbounds = append(outbounds, outbound)
		tags = append(tags, tag)
	}
	if len(outbounds) == 0 {
		logger.Warn("no valid sing-box outbound generated")
		return &Result{ContentType: "application/json"}, nil
	}

	config := b.template()
	groups := []map[string]any{
		{
			"type":      "selector",
			"tag":       singboxSelectorTag,
			"outbounds": append([]string{singboxURLTestTag}, tags...),
			"default":   singboxURLTestTag,
		},
		{
			"type":      "urltest",
			"tag":       singboxURLTestTag,
			"outbounds": tags,
			"url":       singboxTestURL,
			"interval":  "10m",
			"tolerance": 50,
		},
		{"type": "direct", "tag": singboxDirectTag},
	}
	if b.legacy {
		groups = append(groups, map[string]any{"type": "dns", "tag": singboxDNSOutTag})
	}
	config["outbounds"] = append(groups, outbounds...)

	payload, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sing-box config: %w", err)
	}

	headers := buildUserHeaders(req.User, req.Lang, req.I18n)
	if headers == nil {
		headers = map[string]string{}
	}
	title := strings.TrimSpace(req.AppName)
	if title == "" {
		title = defaultClashProfileName
	}
	headers["content-disposition"] = fmt.Sprintf("attachment;filename*=UTF-8''%s.json", url.PathEscape(title))
	return &Result{
		Payload:     payload,
		ContentType: "application/json",
		Headers:     headers,
	}, nil
}

func (b *SingboxBuilder) template() map[string]any {
	clashModes := []map[string]any{
		{"clash_mode": "Direct", "outbound": singboxDirectTag},
		{"clash_mode": "Global", "outbound": singboxSelectorTag},
	}
	if b.legacy {
		return map[string]any{
			"log": map[string]any{"level": "info", "timestamp": true},
			"dns": map[string]any{
				"servers": []map[string]any{
					{"tag": "remote", "address": "https://1.1.1.1/dns-query", "detour": singboxSelectorTag},
					{"tag": "local", "address": "local", "detour": singboxDirectTag},
				},
				"final": "remote",
			},
			"route": map[string]any{
				"rules": append([]map[string]any{
					{"protocol": "dns", "outbound": singboxDNSOutTag},
				}, clashModes...),
				"final":                 singboxSelectorTag,
				"auto_detect_interface": true,
			},
		}
	}
	return map[string]any{
		"log": map[string]any{"level": "info", "timestamp": true},
		"dns": map[string]any{
			"servers": []map[string]any{
				{"type": "https", "tag": "remote", "server": "1.1.1.1", "detour": singboxSelectorTag},
				{"type": "local", "tag": "local"},
			},
			"final": "remote",
		},
		"route": map[string]any{
			"rules": append([]map[string]any{
				{"action": "sniff"},
				{"protocol": "dns", "action": "hijack-dns"},
			}, clashModes...),
			"final":                   singboxSelectorTag,
			"auto_detect_interface":   true,
			"default_domain_resolver": "local",
		},
	}
}

func singboxOutbound(identity string, server Server) (map[string]any, error) {
	out := map[string]any{
		"tag":         server.Name,
		"server":      server.Host,
		"server_port": server.ResolvePort(),
	}
	switch strings.ToLower(server.Type) {
	case TypeShadowsocks:
		ss := server.Shadowsocks
		if ss == nil || ss.Cipher == "" {
			return nil, fmt.Errorf("missing cipher")
		}
		out["type"] = "shadowsocks"
		out["method"] = ss.Cipher
		out["password"] = ShadowsocksCredential(identity, server)
		if ss.Plugin != "" {
			out["plugin"] = ss.Plugin
			out["plugin_opts"] = ss.PluginOpts
		}
	case TypeVMess:
		vm := server.VMess
		if vm == nil {
			vm = &VMessSettings{}
		}
		out["type"] = "vmess"
		out["uuid"] = identity
		out["alter_id"] = 0
		out["security"] = "auto"
		if vm.TLS {
			out["tls"] = singboxTLS(vm.TLSSettings, false)
		}
		singboxTransport(out, vm.Network, vm.NetworkSettings)
	case TypeVLESS:
		vl := server.VLESS
		if vl == nil {
			vl = &VLESSSettings{}
		}
		out["type"] = "vless"
		out["uuid"] = identity
		if vl.Flow != "" {
			out["flow"] = vl.Flow
		}
		if vl.TLSMode != TLSModeNone {
			out["tls"] = singboxTLS(vl.TLSSettings, vl.TLSMode == TLSModeReality)
		}
		singboxTransport(out, vl.Network, vl.NetworkSettings)
	case TypeTrojan:
		tr := server.Trojan
		if tr == nil {
			tr = &TrojanSettings{}
		}
		out["type"] = "trojan"
		out["password"] = identity
		out["tls"] = singboxTLS(TLSSettings{ServerName: tr.ServerName, AllowInsecure: tr.AllowInsecure}, false)
		singboxTransport(out, tr.Network, tr.NetworkSettings)
	case TypeHysteria:
		hy := server.Hysteria
		if hy == nil {
			hy = &HysteriaSettings{Version: 2}
		}
		tls := singboxTLS(TLSSettings{ServerName: hy.ServerName, AllowInsecure: hy.AllowInsecure}, false)
		if hy.Version == 1 {
			out["type"] = "hysteria"
			out["auth_str"] = identity
			out["up_mbps"] = hy.UpMbps
			out["down_mbps"] = hy.DownMbps
			if hy.Obfs != "" {
				out["obfs"] = hy.Obfs
			}
			tls["alpn"] = []string{"hysteria"}
		} else {
			out["type"] = "hysteria2"
			out["password"] = identity
			if hy.UpMbps > 0 {
				out["up_mbps"] = hy.UpMbps
			}
			if hy.DownMbps > 0 {
				out["down_mbps"] = hy.DownMbps
			}
			if hy.Obfs != "" {
				out["obfs"] = map[string]any{"type": hy.Obfs, "password": hy.ObfsPassword}
			}
		}
		out["tls"] = tls
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, server.Type)
	}
	return out, nil
}

func singboxTLS(settings TLSSettings, reality bool) map[string]any {
	tls := map[string]any{
		"enabled":  true,
		"insecure": settings.AllowInsecure,
	}
	if settings.ServerName != "" {
		tls["server_name"] = settings.ServerName
	}
	fp := settings.Fingerprint
	if reality {
		tls["reality"] = map[string]any{
			"enabled":    true,
			"public_key": settings.PublicKey,
			"short_id":   settings.ShortID,
		}
		if fp == "" {
			fp = defaultFingerprint
		}
	}
	if fp != "" {
		tls["utls"] = map[string]any{"enabled": true, "fingerprint": fp}
	}
	return tls
}

func singboxTransport(out map[string]any, network string, ns *NetworkSettings) {
	switch network {
	case NetworkWS:
		transport := map[string]any{"type": "ws"}
		if ns != nil && ns.Path != "" {
			transport["path"] = ns.Path
		}
		if host := ns.headerHost(); host != "" {
			transport["headers"] = map[string]string{"Host": host}
		}
		out["transport"] = transport
	case NetworkGRPC:
		transport := map[string]any{"type": "grpc"}
		if ns != nil && ns.ServiceName != "" {
			transport["service_name"] = ns.ServiceName
		}
		out["transport"] = transport
	case NetworkHTTPUpgrade:
		transport := map[string]any{"type": "httpupgrade"}
		if ns != nil && ns.Path != "" {
			transport["path"] = ns.Path
		}
		if ns != nil && ns.Host != "" {
			transport["host"] = ns.Host
		}
		out["transport"] = transport
	}
}
