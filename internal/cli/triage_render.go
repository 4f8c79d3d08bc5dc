package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"triage_server/core/domain"
	"triage_server/core/service/dashboard"
)

const (
	subjectWidth = 48
	fromWidth    = 32
	barWidth     = 30
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	categoryColors = map[domain.Category]lipgloss.Color{
		domain.CategoryImportant:    lipgloss.Color("9"),
		domain.CategoryPromotions:   lipgloss.Color("11"),
		domain.CategorySocial:       lipgloss.Color("12"),
		domain.CategoryMarketing:    lipgloss.Color("13"),
		domain.CategorySpam:         lipgloss.Color("1"),
		domain.CategoryGeneral:      lipgloss.Color("7"),
		domain.CategoryUnclassified: lipgloss.Color("8"),
	}
)

func categoryLabel(c domain.Category) string {
	return lipgloss.NewStyle().Foreground(categoryColors[c]).Render(string(c))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderInbox(views []domain.EmailView) string {
	if len(views) == 0 {
		return mutedStyle.Render("No emails.")
	}

	t := newTable("CATEGORY", "CONF", "PRIORITY", "ACTION", "FROM", "SUBJECT")
	for _, v := range views {
		conf, priority, action := "-", "-", ""
		if v.IsClassified() {
			conf = fmt.Sprintf("%.0f%%", v.Confidence*100)
			priority = string(v.Priority)
			if v.ActionRequired {
				action = alertStyle.Render("yes")
			}
		}
		t.Row(
			categoryLabel(v.Category),
			conf,
			priority,
			action,
			truncate(v.From, fromWidth),
			truncate(v.Subject, subjectWidth),
		)
	}
	return t.String()
}

func renderStats(st dashboard.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d  Classified: %d (%d%%)  Unclassified: %d  Action required: %d\n",
		st.Total, st.Classified, st.RatePercent, st.Unclassified, st.ActionRequired)

	if top, ok := st.TopCategory(); ok {
		fmt.Fprintf(&b, "Top category: %s\n", categoryLabel(top.Category))
	}
	if len(st.Distribution) == 0 {
		return b.String()
	}

	t := newTable("CATEGORY", "COUNT", "")
	for _, row := range st.Distribution {
		n := row.Count * barWidth / st.Total
		if n == 0 && row.Count > 0 {
			n = 1
		}
		bar := lipgloss.NewStyle().Foreground(categoryColors[row.Category]).Render(strings.Repeat("█", n))
		t.Row(categoryLabel(row.Category), fmt.Sprint(row.Count), bar)
	}
	b.WriteString(t.String())
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
