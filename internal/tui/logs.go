package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// RenderSubscriptionLogs 列出最近的订阅拉取记录。
func RenderSubscriptionLogs(logs []*repository.SubscriptionLog, loc *time.Location) string {
	if len(logs) == 0 {
		return styleWarning.Render("no subscription logs") + "\n"
	}
	if loc == nil {
		loc = time.Local
	}
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			time.Unix(l.CreatedAt, 0).In(loc).Format("2006-01-02 15:04:05"),
			l.Client,
			l.Outcome,
			l.IP,
			l.UserAgent,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("TIME", "CLIENT", "OUTCOME", "IP", "USER AGENT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			if col == 2 {
				return outcomeStyle(rows[row][2]).Padding(0, 1)
			}
			return styleTableRow
		})
	return t.Render() + "\n"
}
