package service

import (
	"strings"

	"github.com/google/uuid"
)

// UserCredentials 是新用户的节点身份与订阅 token。
type UserCredentials struct {
	UUID  string
	Token string
}

// NewUserCredentials 生成随机 UUID 与 32 位十六进制 token。
func NewUserCredentials() UserCredentials {
	return UserCredentials{
		UUID:  uuid.NewString(),
		Token: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}
