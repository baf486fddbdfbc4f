// 文件路径: internal/protocol/clash.go
// 模块说明: Clash / Clash.Meta YAML 订阅，节点写入 proxies，并合并进模板里的 proxy-groups。
package protocol

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultClashProfileName = "XBoard"

// ClashBuilder 渲染 Clash 配置。template 为空时使用内置的最小模板。
type ClashBuilder struct {
	template string
}

// NewClashBuilder 创建 Clash 构建器，template 为 YAML 模板内容。
func NewClashBuilder(template string) *ClashBuilder {
	return &ClashBuilder{template: template}
}

func (b *ClashBuilder) Flags() []string {
	return []string{"clash"}
}

func (b *ClashBuilder) Build(req BuildRequest) (*Result, error) {
	identity := ""
	if req.User != nil {
		identity = req.User.UUID
	}
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	logger := req.logger()

	proxies := make([]map[string]any, 0, len(req.Servers))
	names := make([]string, 0, len(req.Servers))
	seen := newTagSet()
	for _, server := range req.Servers {
		proxy, err := clashProxy(identity, server)
		if err != nil {
			logger.Debug("skip server for clash", "server_id", server.ID, "type", server.Type, "error", err)
			continue
		}
		name := seen.claim(server)
		proxy["name"] = name
		proxies = append(proxies, proxy)
		names = append(names, name)
	}
	if len(proxies) == 0 {
		logger.Warn("no valid clash proxy generated")
		return &Result{ContentType: "text/yaml; charset=utf-8"}, nil
	}

	profile := strings.TrimSpace(req.AppName)
	if profile == "" {
		profile = defaultClashProfileName
	}
	config := b.loadTemplate(profile)
	config["proxies"] = append(asMapSlice(config["proxies"]), proxies...)
	mergeClashGroups(config, names, profile)
	ensureMatchRule(config, profile)

	payload, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal clash config: %w", err)
	}
	content := strings.ReplaceAll(string(payload), "$app_name", profile)

	headers := buildUserHeaders(req.User, req.Lang, req.I18n)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["profile-title"] = profile
	headers["content-disposition"] = "attachment;filename*=UTF-8''" + url.PathEscape(profile)
	if appURL := strings.TrimSpace(req.AppURL); appURL != "" {
		headers["profile-web-page-url"] = appURL
	}
	return &Result{
		Payload:     []byte(content),
		ContentType: "text/yaml; charset=utf-8",
		Headers:     headers,
	}, nil
}

func (b *ClashBuilder) loadTemplate(profile string) map[string]any {
	if strings.TrimSpace(b.template) != "" {
		var cfg map[string]any
		if err := yaml.Unmarshal([]byte(b.template), &cfg); err == nil && cfg != nil {
			return cfg
		}
	}
	return map[string]any{
		"mixed-port": 7890,
		"allow-lan":  false,
		"mode":       "rule",
		"log-level":  "info",
		"proxies":    []map[string]any{},
		"proxy-groups": []map[string]any{{
			"name":    profile,
			"type":    "select",
			"proxies": []string{},
		}},
		"rules": []string{"MATCH," + profile},
	}
}

// mergeClashGroups 把节点名称合并进每个分组；"/regex/i" 形式的条目按正则筛选节点。
func mergeClashGroups(config map[string]any, names []string, profile string) {
	groups := asMapSlice(config["proxy-groups"])
	if len(groups) == 0 {
		groups = []map[string]any{{"name": profile, "type": "select"}}
	}
	kept := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		var merged []string
		filtered := false
		for _, entry := range asStringSlice(group["proxies"]) {
			re, ok := clashRegex(entry)
			if !ok {
				merged = append(merged, entry)
				continue
			}
			filtered = true
			for _, name := range names {
				if re.MatchString(name) {
					merged = append(merged, name)
				}
			}
		}
		if !filtered {
			merged = append(merged, names...)
		}
		merged = dedupe(merged)
		if len(merged) == 0 {
			continue
		}
		group["proxies"] = merged
		kept = append(kept, group)
	}
	config["proxy-groups"] = kept
}

func ensureMatchRule(config map[string]any, profile string) {
	rules := asStringSlice(config["rules"])
	for _, rule := range rules {
		if strings.HasPrefix(rule, "MATCH,") {
			config["rules"] = rules
			return
		}
	}
	config["rules"] = append(rules, "MATCH,"+profile)
}

func clashRegex(expr string) (*regexp.Regexp, bool) {
	if len(expr) < 2 || expr[0] != '/' {
		return nil, false
	}
	last := strings.LastIndex(expr, "/")
	if last <= 0 {
		return nil, false
	}
	pattern := expr[1:last]
	if strings.Contains(expr[last+1:], "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

func clashProxy(identity string, server Server) (map[string]any, error) {
	proxy := map[string]any{
		"name":   server.Name,
		"server": server.Host,
		"port":   server.ResolvePort(),
		"udp":    true,
	}
	switch strings.ToLower(server.Type) {
	case TypeShadowsocks:
		ss := server.Shadowsocks
		if ss == nil || ss.Cipher == "" {
			return nil, fmt.Errorf("missing cipher")
		}
		proxy["type"] = "ss"
		proxy["cipher"] = ss.Cipher
		proxy["password"] = ShadowsocksCredential(identity, server)
		if ss.Plugin != "" {
			proxy["plugin"] = ss.Plugin
			if opts := pluginOptions(ss.PluginOpts); len(opts) > 0 {
				proxy["plugin-opts"] = opts
			}
		}
	case TypeVMess:
		vm := server.VMess
		if vm == nil {
			vm = &VMessSettings{}
		}
		proxy["type"] = "vmess"
		proxy["uuid"] = identity
		proxy["alterId"] = 0
		proxy["cipher"] = "auto"
		if vm.TLS {
			proxy["tls"] = true
			proxy["skip-cert-verify"] = vm.TLSSettings.AllowInsecure
			if sni := vm.TLSSettings.ServerName; sni != "" {
				proxy["servername"] = sni
			}
		}
		clashTransport(proxy, vm.Network, vm.NetworkSettings)
	case TypeVLESS:
		vl := server.VLESS
		if vl == nil {
			vl = &VLESSSettings{}
		}
		proxy["type"] = "vless"
		proxy["uuid"] = identity
		if vl.Flow != "" {
			proxy["flow"] = vl.Flow
		}
		if vl.TLSMode != TLSModeNone {
			proxy["tls"] = true
			proxy["skip-cert-verify"] = vl.TLSSettings.AllowInsecure
			if sni := vl.TLSSettings.ServerName; sni != "" {
				proxy["servername"] = sni
			}
			if fp := vl.TLSSettings.Fingerprint; fp != "" {
				proxy["client-fingerprint"] = fp
			}
			if vl.TLSMode == TLSModeReality {
				proxy["reality-opts"] = map[string]any{
					"public-key": vl.TLSSettings.PublicKey,
					"short-id":   vl.TLSSettings.ShortID,
				}
			}
		}
		if enc, ok := expandEncryption(vl); ok {
			proxy["encryption"] = enc
		}
		clashTransport(proxy, vl.Network, vl.NetworkSettings)
	case TypeTrojan:
		tr := server.Trojan
		if tr == nil {
			tr = &TrojanSettings{}
		}
		proxy["type"] = "trojan"
		proxy["password"] = identity
		if tr.ServerName != "" {
			proxy["sni"] = tr.ServerName
		}
		proxy["skip-cert-verify"] = tr.AllowInsecure
		clashTransport(proxy, tr.Network, tr.NetworkSettings)
	case TypeHysteria:
		hy := server.Hysteria
		if hy == nil || hy.Version != 2 {
			return nil, fmt.Errorf("only hysteria2 is supported")
		}
		proxy["type"] = "hysteria2"
		proxy["password"] = identity
		if hy.ServerName != "" {
			proxy["sni"] = hy.ServerName
		}
		proxy["skip-cert-verify"] = hy.AllowInsecure
		if hy.Obfs != "" {
			proxy["obfs"] = hy.Obfs
			proxy["obfs-password"] = hy.ObfsPassword
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, server.Type)
	}
	return proxy, nil
}

func clashTransport(proxy map[string]any, network string, ns *NetworkSettings) {
	switch network {
	case NetworkWS:
		proxy["network"] = "ws"
		opts := map[string]any{}
		if ns != nil && ns.Path != "" {
			opts["path"] = ns.Path
		}
		if host := ns.headerHost(); host != "" {
			opts["headers"] = map[string]any{"Host": host}
		}
		if len(opts) > 0 {
			proxy["ws-opts"] = opts
		}
	case NetworkGRPC:
		proxy["network"] = "grpc"
		if ns != nil && ns.ServiceName != "" {
			proxy["grpc-opts"] = map[string]any{"grpc-service-name": ns.ServiceName}
		}
	case NetworkHTTPUpgrade:
		proxy["network"] = "ws"
		opts := map[string]any{"v2ray-http-upgrade": true}
		if ns != nil && ns.Path != "" {
			opts["path"] = ns.Path
		}
		if ns != nil && ns.Host != "" {
			opts["headers"] = map[string]any{"Host": ns.Host}
		}
		proxy["ws-opts"] = opts
	default:
		proxy["network"] = "tcp"
	}
}

func pluginOptions(raw string) map[string]string {
	opts := map[string]string{}
	for _, pair := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		opts[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return opts
}

func asMapSlice(value any) []map[string]any {
	var out []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func asStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
