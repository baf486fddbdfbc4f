// 文件路径: internal/service/subscribe_url.go
// 模块说明: 生成用户的订阅链接，支持直接 token 与 TOTP 短时令牌两种方式。
package service

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/protocol"
)

// 订阅链接生成方式。
const (
	SubscribeMethodToken = 0
	SubscribeMethodOTP   = 1
	SubscribeMethodTOTP  = 2
)

const defaultSubscribePath = "/api/v1/client/subscribe"

// SubscribeURL 计算用户的订阅链接。配置了多个域名时随机选一个。
func SubscribeURL(cfg config.SubscribeConfig, token string, userID int64, now time.Time) string {
	path := cfg.Path
	if path == "" {
		path = defaultSubscribePath
	}
	value := token
	if cfg.Method == SubscribeMethodTOTP && userID > 0 {
		value = TOTPToken(token, userID, cfg.TOTPExpireMinutes, now)
	}
	link := path + "?token=" + url.QueryEscape(value)

	bases := cfg.BaseURLs()
	if len(bases) == 0 {
		return link
	}
	return bases[rand.IntN(len(bases))] + link
}

// TOTPToken 以用户 token 为密钥对时间步计数做 HMAC-SHA1，返回 base64url("id:hex")。
func TOTPToken(token string, userID int64, expireMinutes int, now time.Time) string {
	if expireMinutes <= 0 {
		expireMinutes = 5
	}
	step := int64(expireMinutes) * 60
	counter := now.Unix() / step

	var msg [8]byte
	binary.BigEndian.PutUint32(msg[4:], uint32(counter))
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write(msg[:])
	sum := hex.EncodeToString(mac.Sum(nil))
	return protocol.Base64URLSafeEncode([]byte(fmt.Sprintf("%d:%s", userID, sum)))
}

// parseTOTPToken 拆出 TOTP 令牌里的用户 ID 与摘要。
func parseTOTPToken(value string) (int64, string, bool) {
	raw, err := protocol.Base64URLSafeDecode(value)
	if err != nil {
		return 0, "", false
	}
	idPart, sum, ok := strings.Cut(string(raw), ":")
	if !ok || len(sum) != sha1.Size*2 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, sum, true
}

// verifyTOTP 接受当前时间步与上一个时间步生成的令牌。
func verifyTOTP(value, token string, userID int64, expireMinutes int, now time.Time) bool {
	if expireMinutes <= 0 {
		expireMinutes = 5
	}
	step := time.Duration(expireMinutes) * time.Minute
	for _, at := range []time.Time{now, now.Add(-step)} {
		if hmac.Equal([]byte(TOTPToken(token, userID, expireMinutes, at)), []byte(value)) {
			return true
		}
	}
	return false
}
