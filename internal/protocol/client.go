package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

var singboxVersionPattern = regexp.MustCompile(`(?i)sing-box\s+([0-9.]+)`)

// ClientIdentity 是每次请求临时推导出的客户端标识。
type ClientIdentity struct {
	// Match 为小写后的匹配串，来自 flag 参数或 User-Agent。
	Match string
	// Version 仅在 sing-box 客户端中提取，可能为空。
	Version string
}

// ResolveClient flag 非空时原样小写后使用，否则使用 User-Agent。
// 只含空白的 flag 也算非空，不会回退到 User-Agent。
func ResolveClient(flag, userAgent string) ClientIdentity {
	match := strings.ToLower(flag)
	if flag == "" {
		match = strings.ToLower(userAgent)
	}
	id := ClientIdentity{Match: match}
	if id.IsSingbox() {
		if m := singboxVersionPattern.FindStringSubmatch(match); len(m) > 1 {
			id.Version = m[1]
		}
	}
	return id
}

// IsSingbox 匹配串中包含 "sing" 即视为 sing-box 系客户端。
func (c ClientIdentity) IsSingbox() bool {
	return strings.Contains(c.Match, "sing")
}

// Name 返回用于日志和指标的简短客户端名称。
func (c ClientIdentity) Name() string {
	name := strings.TrimSpace(c.Match)
	if name == "" {
		return "unknown"
	}
	if i := strings.IndexAny(name, "/ ("); i > 0 {
		name = name[:i]
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}

// parseVersion 解析点分版本号，任何段不是数字都视为无法解析。
func parseVersion(raw string) ([]int, bool) {
	trimmed := strings.Trim(strings.TrimSpace(raw), ".")
	if trimmed == "" {
		return nil, false
	}
	parts := strings.Split(trimmed, ".")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		values = append(values, n)
	}
	return values, true
}

// versionLess 按段比较版本号，缺失的段按 0 处理。
func versionLess(current, required []int) bool {
	maxLen := max(len(current), len(required))
	for i := 0; i < maxLen; i++ {
		var c, r int
		if i < len(current) {
			c = current[i]
		}
		if i < len(required) {
			r = required[i]
		}
		if c != r {
			return c < r
		}
	}
	return false
}
