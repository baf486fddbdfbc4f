package tui

import (
	"encoding/base64"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Preview 是一次订阅生成结果的展示数据。
type Preview struct {
	Client      string
	Outcome     string
	ContentType string
	ETag        string
	Headers     map[string]string
	Payload     []byte
}

// Lines 在通用格式（base64 包裹的 CRLF 链接列表）时解码出每条链接，其他格式返回 false。
func (p Preview) Lines() ([]string, bool) {
	text := strings.TrimSpace(string(p.Payload))
	if text == "" || strings.ContainsAny(text, " \n{:") {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, false
	}
	var lines []string
	for _, line := range strings.Split(string(raw), "\r\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, true
}

// RenderPreview 输出摘要框，随后是解码后的链接或原始文档。
func RenderPreview(p Preview) string {
	summary := []string{
		row("Client:", p.Client),
		lipgloss.JoinHorizontal(lipgloss.Left, styleLabel.Render("Outcome:"), outcomeStyle(p.Outcome).Render(p.Outcome)),
		row("Content-Type:", p.ContentType),
		row("ETag:", p.ETag),
	}
	keys := make([]string, 0, len(p.Headers))
	for k := range p.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		summary = append(summary, row(k+":", p.Headers[k]))
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render("Subscription Preview"))
	b.WriteString("\n")
	b.WriteString(styleBox.Render(lipgloss.JoinVertical(lipgloss.Left, summary...)))
	b.WriteString("\n")

	if lines, ok := p.Lines(); ok {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		return b.String()
	}
	b.Write(p.Payload)
	if len(p.Payload) > 0 && p.Payload[len(p.Payload)-1] != '\n' {
		b.WriteString("\n")
	}
	return b.String()
}

func row(label, value string) string {
	if value == "" {
		value = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, styleLabel.Render(label), styleValue.Render(value))
}
