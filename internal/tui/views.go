package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/tui/styles"
)

const progressBarWidth = 12

var tabLabels = map[domain.Domain]string{
	domain.DomainWatchProgress: "Watch progress",
	domain.DomainFavorites:     "Favorites",
	domain.DomainSearchHistory: "Search history",
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateConfirmClear:
		return m.renderConfirm(fmt.Sprintf("Clear every entry of %s?", tabLabels[m.CurrentDomain()]))
	case StateConfirmLogout:
		return m.renderConfirm(fmt.Sprintf("Log out %s and drop the cached data?", m.Status.Username))
	}

	sections := []string{
		m.renderHeader(),
		m.renderFilter(),
		m.renderRows(max(m.Height-ChromeHeight, 1)),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, d := range domain.AllDomains {
		label := fmt.Sprintf("%s (%d)", tabLabels[d], len(m.Rows[d]))
		if i == m.Tab {
			tabs = append(tabs, styles.ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, styles.InactiveTabStyle.Render(label))
		}
	}

	user := "anonymous"
	if m.Status.HasUser {
		user = m.Status.Username
	}
	badge := styles.StaleBadge.Render("not cached")
	if m.Status.Domains[m.CurrentDomain()] {
		badge = styles.CachedBadge.Render("cached")
	}
	info := styles.DimStyle.Render(fmt.Sprintf(" %s · %s ", m.Status.Mode, user)) + badge

	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(info), 1)
	return left + strings.Repeat(" ", gap) + info + "\n"
}

func (m Model) renderFilter() string {
	if m.State == StateFiltering {
		return m.Filter.View()
	}
	if q := m.Query[m.CurrentDomain()]; q != "" {
		return styles.FilterPromptStyle.Render("/") + q + styles.DimStyle.Render("  (esc to clear)")
	}
	return ""
}

func (m Model) renderRows(height int) string {
	d := m.CurrentDomain()
	rows := m.Rows[d]
	if len(rows) == 0 {
		empty := "Nothing here yet"
		if m.Query[d] != "" {
			empty = "No matches"
		}
		return styles.DimStyle.Render("  " + empty)
	}

	// Keep the cursor in view
	cursor := m.Cursor[d]
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(rows))

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, styles.RenderListRow(m.renderRow(rows[i]), i == cursor, m.Width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r Row) string {
	titleWidth := max(m.Width/2, 10)
	title := styles.Truncate(r.Title, titleWidth)
	if len(r.Matched) > 0 && title == r.Title {
		title = styles.HighlightMatches(title, r.Matched)
	}
	title += strings.Repeat(" ", max(titleWidth-lipgloss.Width(r.Title), 0))

	var b strings.Builder
	b.WriteString(title)
	if r.Progress >= 0 {
		b.WriteString("  ")
		b.WriteString(styles.RenderProgressBar(r.Progress, progressBarWidth))
		fmt.Fprintf(&b, " %3.0f%%", r.Progress*100)
	}
	if r.Detail != "" {
		b.WriteString("  ")
		b.WriteString(styles.DimStyle.Render(r.Detail))
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.Err != nil:
		status = styles.ErrorStyle.Render(m.Err.Error())
	case m.Message != "":
		status = styles.SuccessStyle.Render(m.Message)
	}
	return "\n" + status + "\n" + m.Help.ShortHelpView(Keys.ShortHelp())
}

func (m Model) renderHelp() string {
	content := styles.TitleStyle.Render("Keys") + "\n\n" + m.Help.FullHelpView(Keys.FullHelp())
	box := styles.ActiveBorder.Padding(1, 2).Render(content)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderConfirm(question string) string {
	content := styles.AccentStyle.Render(question) + "\n\n" +
		styles.HelpKeyStyle.Render("y") + styles.HelpDescStyle.Render(" confirm  ") +
		styles.HelpKeyStyle.Render("n") + styles.HelpDescStyle.Render(" cancel")
	box := styles.ActiveBorder.Padding(1, 2).Render(content)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}
