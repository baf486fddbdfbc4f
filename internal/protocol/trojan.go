package protocol

import (
	"fmt"
	"strconv"
)

// EncodeTrojan 生成 trojan:// 链接，peer 与 sni 都取 server_name。主机与 server_name 原样输出，方括号只用于 vless。
func EncodeTrojan(identity string, server Server) (string, error) {
	var serverName string
	var insecure bool
	if server.Trojan != nil {
		serverName = server.Trojan.ServerName
		insecure = server.Trojan.AllowInsecure
	}
	query := "allowInsecure=" + strconv.FormatBool(insecure) + "&peer=" + serverName + "&sni=" + serverName
	return fmt.Sprintf("trojan://%s@%s:%d?%s#%s%s",
		identity,
		server.Host,
		server.ResolvePort(),
		query,
		escapeName(server.Name),
		lineBreak,
	), nil
}
