package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// EncodeVMess 生成 vmess:// 链接，内容是按固定键顺序序列化的 JSON 再做标准 Base64。
func EncodeVMess(identity string, server Server) (string, error) {
	settings := server.VMess
	if settings == nil {
		settings = &VMessSettings{Network: NetworkTCP}
	}
	network := settings.Network
	if network == "" {
		network = NetworkTCP
	}

	fields := newOrderedFields()
	fields.Set("v", "2")
	fields.Set("ps", server.Name)
	fields.Set("add", server.Host)
	fields.Set("port", strconv.Itoa(server.ResolvePort()))
	fields.Set("id", identity)
	fields.Set("aid", "0")
	fields.Set("net", network)
	fields.Set("type", "none")
	fields.Set("host", "")
	fields.Set("path", "")
	if settings.TLS {
		fields.Set("tls", "tls")
		if sni := settings.TLSSettings.ServerName; sni != "" {
			fields.Set("sni", sni)
		}
	} else {
		fields.Set("tls", "")
	}
	overlayVMessTransport(network, settings.NetworkSettings, fields)

	payload, err := fields.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal vmess config: %w", err)
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(payload) + lineBreak, nil
}

// overlayVMessTransport VMess 的 JSON 里 header 类型写在 type，gRPC 服务名写在 path。
func overlayVMessTransport(network string, ns *NetworkSettings, fields *orderedFields) {
	if ns == nil {
		return
	}
	switch network {
	case NetworkTCP:
		if ns.Header == nil {
			return
		}
		if ns.Header.Type != "" {
			fields.Set("type", ns.Header.Type)
		}
		if ns.Header.Request != nil && len(ns.Header.Request.Path) > 0 {
			fields.Set("path", ns.Header.Request.Path.First())
		}
	case NetworkWS:
		if ns.Path != "" {
			fields.Set("path", ns.Path)
		}
		if host := ns.headerHost(); host != "" {
			fields.Set("host", host)
		}
	case NetworkGRPC:
		if ns.ServiceName != "" {
			fields.Set("path", ns.ServiceName)
		}
	}
}
