// 文件路径: internal/repository/errors.go
// 模块说明: 仓储层的哨兵错误。
package repository

import "errors"

var (
	// ErrNotFound 表示查询未返回数据。
	ErrNotFound = errors.New("not found / 未找到数据")
	// ErrConflict 表示唯一键冲突，例如重复的 token 或 email。
	ErrConflict = errors.New("conflict / 数据已存在")
)
