// Package render draws boards, progress and push history for the terminal.
package render

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/storage"
	"github.com/conorfennell/studyboard/internal/studytimer"
)

const columnWidth = 30

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hiddenStyle  = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			Width(columnWidth)

	difficultyStyles = map[domain.Difficulty]lipgloss.Style{
		domain.Easy:   successStyle,
		domain.Medium: accentStyle,
		domain.Hard:   pendingStyle,
		domain.Expert: errorStyle,
	}
)

// Options controls board rendering.
type Options struct {
	// All includes archived and deleted cards.
	All bool
	// Running marks the card whose study timer is active.
	Running string
}

// Board writes b as side-by-side columns. Each card is prefixed with its
// position in the list, which is the index move expects.
func Board(w io.Writer, b domain.Board, opts Options) {
	fmt.Fprintln(w, titleStyle.Render(b.Name))
	if len(b.Lists) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no lists)"))
		return
	}

	cols := make([]string, 0, len(b.Lists))
	for _, l := range b.Lists {
		cols = append(cols, columnStyle.Render(column(l, opts)))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func column(l *domain.List, opts Options) string {
	lines := []string{
		titleStyle.Render(l.Title),
		mutedStyle.Render(l.ID),
	}
	shown := 0
	for i, c := range l.Cards {
		if !opts.All && !c.Visible() {
			continue
		}
		shown++
		lines = append(lines, "")
		lines = append(lines, cardLines(i, c, c.ID == opts.Running)...)
	}
	if shown == 0 {
		lines = append(lines, "", mutedStyle.Render("empty"))
	}
	if l.AddingCard {
		lines = append(lines, "", accentStyle.Render("+ adding card"))
	}
	return strings.Join(lines, "\n")
}

func cardLines(i int, c *domain.Card, running bool) []string {
	head := fmt.Sprintf("%d. %s", i, c.Title)
	switch {
	case c.Deleted:
		head = hiddenStyle.Render(head) + " " + errorStyle.Render("deleted")
	case c.Archived:
		head = hiddenStyle.Render(head) + " " + mutedStyle.Render("archived")
	case running:
		head = head + " " + successStyle.Render("●")
	}

	lines := []string{head}
	if c.SubTitle != "" {
		lines = append(lines, "   "+c.SubTitle)
	}

	meta := []string{difficulty(c.Difficulty)}
	if c.PreTestGrade != "" || c.PostTestGrade != "" {
		meta = append(meta, fmt.Sprintf("pre %s / post %s", orDash(c.PreTestGrade), orDash(c.PostTestGrade)))
	}
	lines = append(lines, "   "+strings.Join(meta, "  "))
	lines = append(lines, "   "+mutedStyle.Render(c.ID))
	return lines
}

func difficulty(d domain.Difficulty) string {
	style, ok := difficultyStyles[d]
	if !ok {
		return mutedStyle.Render(string(d))
	}
	return style.Render(string(d))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Card writes every field of c.
func Card(w io.Writer, l *domain.List, c *domain.Card) {
	rows := [][2]string{
		{"id", c.ID},
		{"list", l.Title},
		{"title", c.Title},
		{"sub_title", c.SubTitle},
		{"description", c.Description},
		{"difficulty", string(c.Difficulty)},
		{"priority", c.Priority},
		{"learning_strategy", c.LearningStrategy},
		{"pre_test_grade", c.PreTestGrade},
		{"post_test_grade", c.PostTestGrade},
		{"notes", c.Notes},
	}
	if c.Rating != nil {
		rows = append(rows, [2]string{"rating", fmt.Sprintf("%g", *c.Rating)})
	}
	if len(c.Checklists) > 0 {
		rows = append(rows, [2]string{"checklists", string(c.Checklists)})
	}
	if !c.CreatedAt.IsZero() {
		rows = append(rows, [2]string{"created_at", c.CreatedAt.Format(time.RFC3339)})
	}
	for _, listID := range slices.Sorted(maps.Keys(c.ColumnMovementTimes)) {
		rows = append(rows, [2]string{"entered " + listID, c.ColumnMovementTimes[listID].Format(time.RFC3339)})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%-18s %s", titleStyle.Render(r[0]), r[1]))
	}
	fmt.Fprintln(w, panel(lines))
}

// Progress writes the backend's progress report.
func Progress(w io.Writer, p domain.ProgressReport) {
	lines := []string{
		titleStyle.Render("Progress"),
		progressBar(p.DoneCards, p.TotalCards, 28),
		fmt.Sprintf("%.1f%% complete", p.ProgressPercentage),
	}
	for _, title := range slices.Sorted(maps.Keys(p.ListReport)) {
		lines = append(lines, fmt.Sprintf("%-20s %d", title, p.ListReport[title]))
	}
	fmt.Fprintln(w, panel(lines))
}

// Timer writes the state of a card's study timer.
func Timer(w io.Writer, cardID string, running bool, elapsed int, total float64) {
	state := mutedStyle.Render("stopped")
	if running {
		state = successStyle.Render("running " + studytimer.FormatMinutes(elapsed))
	}
	fmt.Fprintf(w, "%s  %s  total %s\n", cardID, state, studytimer.FormatMinutes(int(total)))
}

// Pushes writes journal entries, newest first.
func Pushes(w io.Writer, pushes []storage.Push) {
	if len(pushes) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no pushes recorded"))
		return
	}
	for _, p := range pushes {
		status := successStyle.Render("ok")
		if !p.Succeeded() {
			status = errorStyle.Render(fmt.Sprintf("failed (%d)", p.Status))
		}
		line := fmt.Sprintf("%s  %-8s %s  %d cards  %s  %s",
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(p.BoardID), status, p.Cards,
			p.Duration.Round(time.Millisecond), mutedStyle.Render(shortID(p.Fingerprint)))
		if p.Error.Valid {
			line += "\n    " + errorStyle.Render(p.Error.String)
		}
		fmt.Fprintln(w, line)
	}
}

// LastAccepted writes when the backend last accepted a push, or that it
// never has.
func LastAccepted(w io.Writer, p *storage.Push) {
	if p == nil {
		fmt.Fprintln(w, pendingStyle.Render("no push accepted yet"))
		return
	}
	fmt.Fprintf(w, "last accepted push: %s  %s  %d cards  %s\n",
		p.StartedAt.Local().Format("2006-01-02 15:04:05"),
		shortID(p.BoardID), p.Cards, mutedStyle.Render(shortID(p.Fingerprint)))
}

// OK and Fail write one-line status messages.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

func panel(lines []string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(strings.Join(lines, "\n"))
}

func progressBar(done, total, width int) string {
	if total == 0 {
		total = 1
	}
	filled := int(float64(done) / float64(total) * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
