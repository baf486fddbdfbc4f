// 文件路径: internal/protocol/settings.go
// 模块说明: 把数据库里的 settings JSON 解析为协议负载，兼容 snake_case / camelCase 与布尔/数字混用。
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ErrUnsupportedType 表示节点类型不在支持列表中。
var ErrUnsupportedType = errors.New("unsupported server type / 不支持的节点类型")

// flexInt 兼容 true/false、数字与数字字符串。
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = 0
	case bool:
		if v {
			*f = 1
		} else {
			*f = 0
		}
	case float64:
		*f = flexInt(int(v))
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case "", "false", "no":
			*f = 0
		case "true", "yes":
			*f = 1
		default:
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid numeric flag %q", v)
			}
			*f = flexInt(n)
		}
	default:
		return fmt.Errorf("invalid numeric flag %s", string(data))
	}
	return nil
}

// flexString 兼容字符串与数字。
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = flexString(scalarString(raw))
	return nil
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type rawTLSSettings struct {
	ServerNameSnake    flexString `json:"server_name"`
	ServerNameCamel    flexString `json:"serverName"`
	Fingerprint        flexString `json:"fingerprint"`
	AllowInsecureSnake *flexInt   `json:"allow_insecure"`
	AllowInsecureCamel *flexInt   `json:"allowInsecure"`
	PublicKeySnake     flexString `json:"public_key"`
	PublicKeyCamel     flexString `json:"publicKey"`
	ShortIDSnake       flexString `json:"short_id"`
	ShortIDCamel       flexString `json:"shortId"`
}

func (r *rawTLSSettings) normalize() TLSSettings {
	if r == nil {
		return TLSSettings{}
	}
	insecure := r.AllowInsecureSnake
	if insecure == nil {
		insecure = r.AllowInsecureCamel
	}
	return TLSSettings{
		ServerName:    firstNonEmpty(string(r.ServerNameSnake), string(r.ServerNameCamel)),
		Fingerprint:   string(r.Fingerprint),
		AllowInsecure: insecure != nil && *insecure != 0,
		PublicKey:     firstNonEmpty(string(r.PublicKeySnake), string(r.PublicKeyCamel)),
		ShortID:       firstNonEmpty(string(r.ShortIDSnake), string(r.ShortIDCamel)),
	}
}

type rawEncryptionSettings struct {
	Mode          flexString `json:"mode"`
	RTT           flexString `json:"rtt"`
	ClientPadding flexString `json:"client_padding"`
	Password      flexString `json:"password"`
}

type rawSettings struct {
	Network              string                 `json:"network"`
	NetworkSettingsSnake json.RawMessage        `json:"network_settings"`
	NetworkSettingsCamel json.RawMessage        `json:"networkSettings"`
	TLS                  flexInt                `json:"tls"`
	TLSSettingsSnake     *rawTLSSettings        `json:"tls_settings"`
	TLSSettingsCamel     *rawTLSSettings        `json:"tlsSettings"`
	Flow                 flexString             `json:"flow"`
	Encryption           flexString             `json:"encryption"`
	EncryptionSettings   *rawEncryptionSettings `json:"encryption_settings"`
	Cipher               string                 `json:"cipher"`
	Plugin               string                 `json:"plugin"`
	PluginOpts           string                 `json:"plugin_opts"`
	ServerName           flexString             `json:"server_name"`
	AllowInsecure        flexInt                `json:"allow_insecure"`
	Version              flexInt                `json:"version"`
	UpMbps               flexInt                `json:"up_mbps"`
	DownMbps             flexInt                `json:"down_mbps"`
	Obfs                 flexString             `json:"obfs"`
	ObfsPassword         flexString             `json:"obfs_password"`
}

func (r *rawSettings) tlsSettings() TLSSettings {
	if r.TLSSettingsSnake != nil {
		return r.TLSSettingsSnake.normalize()
	}
	return r.TLSSettingsCamel.normalize()
}

// networkSettings 解析失败时视为缺省，返回 nil 和错误供调用方记录。
func (r *rawSettings) networkSettings() (*NetworkSettings, error) {
	raw := r.NetworkSettingsSnake
	if isJSONNull(raw) {
		raw = r.NetworkSettingsCamel
	}
	if isJSONNull(raw) {
		return nil, nil
	}
	var ns NetworkSettings
	if err := json.Unmarshal(raw, &ns); err != nil {
		return nil, fmt.Errorf("decode network settings: %w", err)
	}
	return &ns, nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (r *rawSettings) network() string {
	n := strings.ToLower(strings.TrimSpace(r.Network))
	if n == "" {
		return NetworkTCP
	}
	return n
}

// ApplySettings 根据 Type 解析 settings JSON 并填充对应的协议负载。
// 解析出错时仍会填充一个默认负载，错误只用于记录日志，编码继续使用默认值。
func (s *Server) ApplySettings(raw []byte) error {
	var rs rawSettings
	var decodeErr error
	if !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &rs); err != nil {
			decodeErr = fmt.Errorf("decode %s settings: %w", s.Type, err)
			rs = rawSettings{}
		}
	}
	switch strings.ToLower(s.Type) {
	case TypeVMess:
		ns, err := rs.networkSettings()
		decodeErr = errors.Join(decodeErr, err)
		s.VMess = &VMessSettings{
			Network:         rs.network(),
			NetworkSettings: ns,
			TLS:             rs.TLS != 0,
			TLSSettings:     rs.tlsSettings(),
		}
	case TypeVLESS:
		ns, err := rs.networkSettings()
		decodeErr = errors.Join(decodeErr, err)
		v := &VLESSSettings{
			Network:         rs.network(),
			NetworkSettings: ns,
			TLSMode:         int(rs.TLS),
			TLSSettings:     rs.tlsSettings(),
			Flow:            string(rs.Flow),
			Encryption:      string(rs.Encryption),
		}
		if rs.EncryptionSettings != nil {
			v.EncryptionSettings = &EncryptionSettings{
				Mode:          string(rs.EncryptionSettings.Mode),
				RTT:           string(rs.EncryptionSettings.RTT),
				ClientPadding: string(rs.EncryptionSettings.ClientPadding),
				Password:      string(rs.EncryptionSettings.Password),
			}
		}
		s.VLESS = v
	case TypeShadowsocks:
		s.Shadowsocks = &ShadowsocksSettings{
			Cipher:     rs.Cipher,
			Plugin:     rs.Plugin,
			PluginOpts: rs.PluginOpts,
		}
	case TypeTrojan:
		ns, err := rs.networkSettings()
		decodeErr = errors.Join(decodeErr, err)
		s.Trojan = &TrojanSettings{
			Network:         rs.network(),
			NetworkSettings: ns,
			ServerName:      string(rs.ServerName),
			AllowInsecure:   rs.AllowInsecure != 0,
		}
	case TypeHysteria:
		version := int(rs.Version)
		if version == 0 {
			version = 2
		}
		tls := rs.tlsSettings()
		s.Hysteria = &HysteriaSettings{
			Version:       version,
			ServerName:    firstNonEmpty(string(rs.ServerName), tls.ServerName),
			AllowInsecure: rs.AllowInsecure != 0 || tls.AllowInsecure,
			UpMbps:        int(rs.UpMbps),
			DownMbps:      int(rs.DownMbps),
			Obfs:          string(rs.Obfs),
			ObfsPassword:  string(rs.ObfsPassword),
		}
	default:
		return errors.Join(decodeErr, fmt.Errorf("%w: %q", ErrUnsupportedType, s.Type))
	}
	return decodeErr
}

// ParsePortRange 解析 "min-max" 形式的端口段。
func ParsePortRange(raw string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo <= 0 || hi > 65535 {
		return 0, 0, false
	}
	return lo, hi, true
}

// ResolvePort 返回本次编码使用的端口；端口段在范围内均匀随机取值。
func (s Server) ResolvePort() int {
	if lo, hi, ok := ParsePortRange(s.PortRange); ok {
		return lo + rand.IntN(hi-lo+1)
	}
	return s.Port
}
