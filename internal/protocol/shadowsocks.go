package protocol

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Shadowsocks 2022 加密方式及其密钥长度。
const (
	Cipher2022AES128 = "2022-blake3-aes-128-gcm"
	Cipher2022AES256 = "2022-blake3-aes-256-gcm"
)

func ss2022KeyLength(cipher string) (int, bool) {
	switch cipher {
	case Cipher2022AES128:
		return 16, true
	case Cipher2022AES256:
		return 32, true
	default:
		return 0, false
	}
}

// ServerKey 由节点创建时间派生 2022 服务端密钥：md5 十六进制串截取 length 个字符后做 Base64。
func ServerKey(createdAt int64, length int) string {
	sum := md5.Sum([]byte(strconv.FormatInt(createdAt, 10)))
	hexed := hex.EncodeToString(sum[:])
	return base64.StdEncoding.EncodeToString([]byte(truncate(hexed, length)))
}

// UserKey 截取用户标识的前 length 个字符后做 Base64。
func UserKey(identity string, length int) string {
	return base64.StdEncoding.EncodeToString([]byte(truncate(identity, length)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ShadowsocksCredential 返回 ss:// 链接里使用的口令；2022 系列为 serverKey:userKey。
func ShadowsocksCredential(identity string, server Server) string {
	settings := server.Shadowsocks
	if settings == nil {
		return identity
	}
	length, ok := ss2022KeyLength(settings.Cipher)
	if !ok {
		return identity
	}
	createdAt := server.CreatedAt
	if createdAt <= 0 {
		createdAt = time.Now().Unix()
	}
	return ServerKey(createdAt, length) + ":" + UserKey(identity, length)
}

// EncodeShadowsocks 生成 ss://<base64url(cipher:password)>@<host>:<port>#<name> 链接。
func EncodeShadowsocks(identity string, server Server) (string, error) {
	if server.Shadowsocks == nil || server.Shadowsocks.Cipher == "" {
		return "", fmt.Errorf("shadowsocks server %d: missing cipher / 缺少加密方式", server.ID)
	}
	credential := server.Shadowsocks.Cipher + ":" + ShadowsocksCredential(identity, server)
	return fmt.Sprintf("ss://%s@%s:%d#%s%s",
		Base64URLSafeEncode([]byte(credential)),
		server.Host,
		server.ResolvePort(),
		escapeName(server.Name),
		lineBreak,
	), nil
}
