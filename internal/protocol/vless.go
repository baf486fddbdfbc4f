package protocol

import (
	"fmt"
	"strings"
)

const (
	defaultFingerprint = "chrome"
	encryptionMLKEM    = "mlkem768x25519plus"
	defaultMLKEMMode   = "native"
	defaultMLKEMRTT    = "1rtt"
	securityTLS        = "tls"
	securityReality    = "reality"
)

// EncodeVLESS 生成 vless://<uuid>@<host>:<port>?<query>#<name> 链接。
// 查询参数顺序固定，security 即使为空也会输出。
func EncodeVLESS(identity string, server Server) (string, error) {
	settings := server.VLESS
	if settings == nil {
		settings = &VLESSSettings{Network: NetworkTCP}
	}
	network := settings.Network
	if network == "" {
		network = NetworkTCP
	}
	tlsSettings := settings.TLSSettings

	params := newOrderedFields()
	params.Set("type", network)
	params.Set("encryption", "none")
	params.Set("host", "")
	params.Set("path", "")
	params.Set("headerType", "none")
	params.Set("quicSecurity", "none")
	params.Set("serviceName", "")
	params.Set("security", vlessSecurity(settings.TLSMode))
	if settings.Flow != "" {
		params.Set("flow", settings.Flow)
	}
	fp := defaultFingerprint
	if tlsSettings.Fingerprint != "" {
		fp = tlsSettings.Fingerprint
	}
	params.Set("fp", fp)
	if tlsSettings.AllowInsecure {
		params.Set("insecure", "1")
	} else {
		params.Set("insecure", "0")
	}
	if settings.TLSMode != TLSModeNone {
		if tlsSettings.ServerName != "" {
			params.Set("sni", tlsSettings.ServerName)
		}
		if settings.TLSMode == TLSModeReality {
			if tlsSettings.PublicKey != "" {
				params.Set("pbk", tlsSettings.PublicKey)
			}
			if tlsSettings.ShortID != "" {
				params.Set("sid", tlsSettings.ShortID)
			}
		}
	}
	if enc, ok := expandEncryption(settings); ok {
		params.Set("encryption", enc)
	}
	ConfigureTransport(network, settings.NetworkSettings, params)

	return fmt.Sprintf("vless://%s@%s:%d?%s#%s%s",
		identity,
		formatHost(server.Host),
		server.ResolvePort(),
		params.Query("security"),
		escapeName(server.Name),
		lineBreak,
	), nil
}

func vlessSecurity(mode int) string {
	switch mode {
	case TLSModeNone:
		return ""
	case TLSModeReality:
		return securityReality
	default:
		return securityTLS
	}
}

// expandEncryption 把 mlkem768x25519plus 展开为 mlkem768x25519plus.<mode>.<rtt>[.<padding>][.<password>]。
func expandEncryption(settings *VLESSSettings) (string, bool) {
	if settings.Encryption != encryptionMLKEM || settings.EncryptionSettings == nil {
		return "", false
	}
	es := settings.EncryptionSettings
	mode := es.Mode
	if mode == "" {
		mode = defaultMLKEMMode
	}
	rtt := es.RTT
	if rtt == "" {
		rtt = defaultMLKEMRTT
	}
	segments := []string{encryptionMLKEM, mode, rtt}
	if es.ClientPadding != "" {
		segments = append(segments, es.ClientPadding)
	}
	if es.Password != "" {
		segments = append(segments, es.Password)
	}
	return strings.Join(segments, "."), true
}
