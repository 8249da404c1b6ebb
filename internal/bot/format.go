package bot

import (
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/models"
)

const barWidth = 10

// progressBar renders "▓▓▓░░░░░░░ 120/412 (29%)"
func progressBar(read, total int) string {
	if total <= 0 {
		return fmt.Sprintf("%d pages", read)
	}
	filled := read * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("%s%s %d/%d (%d%%)",
		strings.Repeat("▓", filled), strings.Repeat("░", barWidth-filled),
		read, total, read*100/total)
}

var statusIcons = map[models.BookStatus]string{
	models.StatusUnread:    "📕",
	models.StatusReading:   "📖",
	models.StatusCompleted: "✅",
}

func formatBooks(books []models.Book) string {
	var text strings.Builder
	text.WriteString("📚 Your books:\n\n")
	for i, book := range books {
		text.WriteString(fmt.Sprintf("%d. %s %s, %s", i+1, statusIcons[book.Status], book.Title, book.Author))
		if book.Status == models.StatusReading {
			text.WriteString("\n   " + progressBar(book.ReadPages, book.TotalPages))
		}
		if book.IsLoaned {
			text.WriteString("\n   🤝 lent out")
		}
		text.WriteString("\n")
	}
	return text.String()
}

func formatGoals(goals []models.GoalWithProgress) string {
	var text strings.Builder
	text.WriteString("🎯 Active goals:\n\n")
	for _, g := range goals {
		text.WriteString(fmt.Sprintf("%s (%s %s)\n   %s\n",
			g.Goal.Title, g.Goal.Period, g.Goal.Type,
			progressBar(g.Progress.Progress, g.Goal.TargetValue)))
	}
	return text.String()
}

func formatLoans(loans []models.Loan, formatDate func(time.Time) string) string {
	var text strings.Builder
	text.WriteString("🤝 Lent out:\n\n")
	for i, loan := range loans {
		text.WriteString(fmt.Sprintf("%d. %s to %s since %s\n", i+1, loan.BookTitle, loan.BorrowerName, formatDate(loan.BorrowedAt)))
	}
	return text.String()
}

func formatQuote(q models.Quote) string {
	source := q.Title
	if q.Page != nil {
		source = fmt.Sprintf("%s, p. %d", q.Title, *q.Page)
	}
	return fmt.Sprintf("💬 \"%s\"\n\n📚 %s", q.Text, source)
}

// formatChart draws one horizontal bar per bucket, scaled to the largest bucket
func formatChart(p models.Period, points []models.ChartPoint) string {
	if len(points) == 0 {
		return fmt.Sprintf("📈 Nothing read in the %s chart window yet.", p)
	}

	maxValue := 0
	for _, point := range points {
		if point.Value > maxValue {
			maxValue = point.Value
		}
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("📈 Pages read (%s)\n\n", p))
	for _, point := range points {
		width := 0
		if maxValue > 0 {
			width = point.Value * barWidth / maxValue
		}
		if point.Value > 0 && width == 0 {
			width = 1
		}
		text.WriteString(fmt.Sprintf("%s %s %d\n", point.Label, strings.Repeat("▇", width), point.Value))
	}
	return text.String()
}
