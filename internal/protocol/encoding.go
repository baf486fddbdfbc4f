// 文件路径: internal/protocol/encoding.go
// 模块说明: 编码辅助：有序字段表、URL 安全 Base64、百分号编码与 IPv6 主机格式化。
package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// orderedFields 保持插入顺序；已存在的键原位覆盖。
type orderedFields struct {
	keys   []string
	values map[string]string
}

func newOrderedFields() *orderedFields {
	return &orderedFields{values: make(map[string]string)}
}

func (f *orderedFields) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f *orderedFields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// MarshalJSON 按插入顺序输出 JSON 对象，不转义 HTML 字符。
func (f *orderedFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		v, err := marshalNoEscape(f.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Query 按插入顺序拼接查询串，空值跳过，always 中的键即使为空也保留。
func (f *orderedFields) Query(always ...string) string {
	keep := make(map[string]struct{}, len(always))
	for _, k := range always {
		keep[k] = struct{}{}
	}
	parts := make([]string, 0, len(f.keys))
	for _, key := range f.keys {
		value := f.values[key]
		if value == "" {
			if _, ok := keep[key]; !ok {
				continue
			}
		}
		parts = append(parts, formEscape(key)+"="+formEscape(value))
	}
	return strings.Join(parts, "&")
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Base64URLSafeEncode 标准 Base64 后替换 +/ 为 -_ 并去掉填充。
func Base64URLSafeEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLSafeDecode 解码 URL 安全 Base64，兼容带或不带填充的输入。
func Base64URLSafeDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// formEscapeFixer 把 url.QueryEscape 的结果对齐到 application/x-www-form-urlencoded：
// 保留 *，编码 ~。
var formEscapeFixer = strings.NewReplacer("%2A", "*", "~", "%7E")

// formEscape 表单编码，空格编码为 +，只保留字母数字与 .-*_ 。
func formEscape(s string) string {
	return formEscapeFixer.Replace(url.QueryEscape(s))
}

// escapeName 对节点名称做表单编码。
func escapeName(name string) string {
	return formEscape(name)
}

// tagSet 为 Clash 代理名与 sing-box outbound tag 去重，重名时追加 #<id>。
type tagSet map[string]struct{}

func newTagSet(reserved ...string) tagSet {
	set := make(tagSet, len(reserved))
	for _, tag := range reserved {
		set[tag] = struct{}{}
	}
	return set
}

func (t tagSet) claim(server Server) string {
	tag := server.Name
	if _, taken := t[tag]; taken {
		base := fmt.Sprintf("%s#%d", server.Name, server.ID)
		tag = base
		for i := 2; ; i++ {
			if _, taken := t[tag]; !taken {
				break
			}
			tag = fmt.Sprintf("%s-%d", base, i)
		}
	}
	t[tag] = struct{}{}
	return tag
}

// formatHost 包含冒号的主机视为 IPv6，加方括号。
func formatHost(host string) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "[" + host + "]"
	}
	return host
}
