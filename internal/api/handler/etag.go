package handler

import "strings"

func formatETag(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return "\"" + trimmed + "\""
}

// etagMatches 判断 If-None-Match 是否包含当前 ETag，支持多个值与 W/ 前缀。
func etagMatches(header, raw string) bool {
	if raw == "" || header == "" {
		return false
	}
	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimPrefix(strings.TrimSpace(part), "W/")
		if candidate == "*" || strings.Trim(candidate, "\"") == raw {
			return true
		}
	}
	return false
}
