package service

import "errors"

var (
	// ErrNotFound 资源不存在。
	ErrNotFound = errors.New("resource not found / 资源不存在")
	// ErrInvalidToken 订阅 token 无法匹配用户。
	ErrInvalidToken = errors.New("token is error / 订阅令牌无效")
	// ErrMissingToken 请求未携带 token。
	ErrMissingToken = errors.New("token is null / 缺少订阅令牌")
	// ErrInvalidServerToken 节点通信密钥错误。
	ErrInvalidServerToken = errors.New("invalid server token / 节点通信密钥错误")
	// ErrNotConfigured 服务依赖未完整注入。
	ErrNotConfigured = errors.New("service not configured / 服务未完整配置")
)
