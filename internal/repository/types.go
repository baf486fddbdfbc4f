// 文件路径: internal/repository/types.go
// 模块说明: 订阅服务用到的持久化记录：用户、套餐、节点。
package repository

import "encoding/json"

// User 订阅用户。Token 用于订阅链接鉴权，UUID 作为各协议的身份凭据。
type User struct {
	ID             int64
	UUID           string
	Token          string
	Email          string
	PlanID         int64
	GroupID        int64
	ExpiredAt      int64
	U              int64
	D              int64
	TransferEnable int64
	Banned         bool
	CreatedAt      int64
	UpdatedAt      int64
}

// Plan 套餐，只保留计算重置日需要的字段。
type Plan struct {
	ID                 int64
	Name               string
	GroupID            int64
	TransferEnable     int64
	ResetTrafficMethod *int64
	CreatedAt          int64
	UpdatedAt          int64
}

// Server 节点记录。
// GroupIDs 原样保存 JSON 数组，元素可能是数字也可能是字符串；Port 可以是单端口或 "min-max" 端口段。
type Server struct {
	ID              int64
	Type            string
	Name            string
	Host            string
	Port            string
	GroupIDs        json.RawMessage
	Show            bool
	Sort            int64
	Settings        json.RawMessage
	LastHeartbeatAt int64
	CreatedAt       int64
	UpdatedAt       int64
}

// SubscriptionLog 记录一次订阅拉取，用于排查客户端问题。
type SubscriptionLog struct {
	ID        int64
	UserID    int64
	Client    string
	Outcome   string
	IP        string
	UserAgent string
	CreatedAt int64
}
