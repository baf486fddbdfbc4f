package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// RenderServers 以表格形式列出节点，Online 列按心跳时间与窗口判断。
func RenderServers(servers []*repository.Server, window time.Duration, now time.Time) string {
	if len(servers) == 0 {
		return styleWarning.Render("no servers") + "\n"
	}
	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Type,
			s.Name,
			s.Host + ":" + s.Port,
			string(s.GroupIDs),
			showLabel(s.Show),
			strconv.FormatInt(s.Sort, 10),
			formatLastSeen(s.LastHeartbeatAt, window, now),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("ID", "TYPE", "NAME", "ADDRESS", "GROUPS", "SHOW", "SORT", "LAST HEARTBEAT").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableRow
		})
	return t.Render() + "\n"
}

func showLabel(show bool) string {
	if show {
		return "yes"
	}
	return "no"
}

func formatLastSeen(at int64, window time.Duration, now time.Time) string {
	if at <= 0 {
		return styleOffline.Render("never")
	}
	ago := now.Sub(time.Unix(at, 0)).Truncate(time.Second)
	if ago < 0 {
		ago = 0
	}
	text := fmt.Sprintf("%s ago", ago)
	if ago <= window {
		return styleOnline.Render(text)
	}
	return styleOffline.Render(strings.TrimSpace(text))
}
