// 文件路径: internal/protocol/types.go
// 模块说明: 订阅引擎的核心数据结构，节点描述按协议区分为带标签的联合体。
package protocol

import (
	"context"
	"log/slog"

	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// 支持的节点类型。
const (
	TypeVMess       = "vmess"
	TypeVLESS       = "vless"
	TypeShadowsocks = "shadowsocks"
	TypeTrojan      = "trojan"
	TypeHysteria    = "hysteria"
)

// Server 是交给编码器的标准化节点描述。
// 公共字段放在头部，协议相关字段放在对应的指针负载里，只有与 Type 匹配的那个会被填充。
type Server struct {
	ID          int64
	Type        string
	Name        string
	Host        string
	Port        int
	PortRange   string
	Sort        int64
	GroupIDs    []int64
	LastCheckAt int64
	CreatedAt   int64
	UpdatedAt   int64
	IsOnline    bool
	CacheKey    string

	VMess       *VMessSettings
	VLESS       *VLESSSettings
	Shadowsocks *ShadowsocksSettings
	Trojan      *TrojanSettings
	Hysteria    *HysteriaSettings
}

// Clone 返回节点的副本；协议负载按只读共享。
func (s Server) Clone() Server {
	cp := s
	if s.GroupIDs != nil {
		cp.GroupIDs = append([]int64(nil), s.GroupIDs...)
	}
	return cp
}

// TLSSettings 汇总 tlsSettings / tls_settings 里的字段。
type TLSSettings struct {
	ServerName    string
	Fingerprint   string
	AllowInsecure bool
	PublicKey     string
	ShortID       string
}

// VMessSettings VMess 协议参数。
type VMessSettings struct {
	Network         string
	NetworkSettings *NetworkSettings
	TLS             bool
	TLSSettings     TLSSettings
}

// TLS 模式：0 关闭，1 TLS，2 Reality。
const (
	TLSModeNone    = 0
	TLSModeTLS     = 1
	TLSModeReality = 2
)

// VLESSSettings VLESS 协议参数。
type VLESSSettings struct {
	Network            string
	NetworkSettings    *NetworkSettings
	TLSMode            int
	TLSSettings        TLSSettings
	Flow               string
	Encryption         string
	EncryptionSettings *EncryptionSettings
}

// EncryptionSettings 对应 VLESS 后量子加密 mlkem768x25519plus 的参数。
type EncryptionSettings struct {
	Mode          string
	RTT           string
	ClientPadding string
	Password      string
}

// ShadowsocksSettings Shadowsocks 协议参数。
type ShadowsocksSettings struct {
	Cipher     string
	Plugin     string
	PluginOpts string
}

// TrojanSettings Trojan 协议参数，Trojan 总是隐式启用 TLS。
type TrojanSettings struct {
	Network         string
	NetworkSettings *NetworkSettings
	ServerName      string
	AllowInsecure   bool
}

// HysteriaSettings Hysteria / Hysteria2 参数，仅 sing-box 与 Clash 输出使用。
type HysteriaSettings struct {
	Version       int
	ServerName    string
	AllowInsecure bool
	UpMbps        int
	DownMbps      int
	Obfs          string
	ObfsPassword  string
}

// SubscribeInfo 是注入到节点列表最前面的提示信息，已经格式化为节点名称。
// ResetLine 为空表示没有重置日，不生成对应条目。
type SubscribeInfo struct {
	TrafficLine string
	ResetLine   string
	ExpireLine  string
}

// BuildRequest 携带生成订阅所需的全部上下文。
type BuildRequest struct {
	Context context.Context
	User    *repository.User
	Servers []Server
	Client  ClientIdentity
	// Info 为 nil 时关闭信息注入。
	Info    *SubscribeInfo
	AppName string
	AppURL  string
	Lang    string
	I18n    *i18n.Manager
	Logger  *slog.Logger
}

func (r BuildRequest) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Result 是构建器输出的序列化内容。
type Result struct {
	Payload     []byte
	ContentType string
	Headers     map[string]string
}

// Empty 判断输出是否为空文档。
func (r *Result) Empty() bool {
	return r == nil || len(r.Payload) == 0
}

// Builder 是各客户端格式渲染器需要实现的接口。
type Builder interface {
	Flags() []string
	Build(req BuildRequest) (*Result, error)
}
