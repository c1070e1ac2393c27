package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
)

const exportHistoryDays = 90

type exportService struct {
	repo      repositories.Repository
	analytics AnalyticsService
	logger    *slog.Logger
}

func NewExportService(repo repositories.Repository, analytics AnalyticsService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:      repo,
		analytics: analytics,
		logger:    logger,
	}
}

// ExportProgressReport renders a three-sheet workbook: an overview summary,
// the per-card scheduling state, and the recent session history.
func (s *exportService) ExportProgressReport(ctx context.Context, userID string, now time.Time) ([]byte, error) {
	stats, err := s.analytics.GetUserStatistics(ctx, userID, exportHistoryDays, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build statistics: %w", err)
	}
	overview, err := s.analytics.GetSRSOverview(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build overview: %w", err)
	}
	records, _, err := s.repo.Progress().GetByUser(ctx, userID, repositories.ProgressFilters{
		SortBy:    "next_review",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}
	history, err := s.analytics.GetSessionHistory(ctx, userID, exportHistoryDays, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := s.writeSummarySheet(f, headerStyle, stats, overview, now); err != nil {
		return nil, err
	}
	if err := s.writeProgressSheet(f, headerStyle, records); err != nil {
		return nil, err
	}
	if err := s.writeSessionSheet(f, headerStyle, history.Sessions); err != nil {
		return nil, err
	}

	// The default sheet becomes the summary.
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, headerStyle int, stats *UserStatistics, overview *repositories.SRSOverview, now time.Time) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Progress Report", now.Format("2006-01-02")},
		{},
		{"Study activity (last 90 days)", ""},
		{"Total sessions", stats.TotalSessions},
		{"Completed sessions", stats.CompletedSessions},
		{"Completion rate (%)", round1(stats.CompletionRate)},
		{"Cards studied", stats.TotalCardsStudied},
		{"Study time (minutes)", round1(stats.TotalStudyTimeMinutes)},
		{"Overall accuracy (%)", round1(stats.OverallAccuracy)},
		{"Average quality", round1(stats.AverageQuality)},
		{"Daily study streak", stats.DailyStudyStreak},
		{},
		{"Review schedule", ""},
		{"Cards in rotation", overview.TotalCards},
		{"Overdue", overview.OverdueCards},
		{"Due today", overview.DueToday},
		{"Due tomorrow", overview.DueTomorrow},
		{"Due this week", overview.DueThisWeek},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}
	return f.SetColWidth(sheet, "A", "A", 28)
}

func (s *exportService) writeProgressSheet(f *excelize.File, headerStyle int, records []*models.ProgressRecord) error {
	const sheet = "Card Progress"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []interface{}{
		"Flashcard ID", "Mastery", "Ease Factor", "Interval (days)",
		"Repetitions", "Times Studied", "Success Rate (%)", "Last Quality",
		"Next Review", "Last Studied",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write progress header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", headerStyle); err != nil {
		return fmt.Errorf("failed to style progress header: %w", err)
	}

	for i, record := range records {
		row := []interface{}{
			record.FlashcardID,
			string(record.MasteryLevel),
			record.EaseFactor,
			record.Interval,
			record.Repetitions,
			record.TimesStudied,
			round1(record.SuccessRate * 100),
			record.LastQuality,
			formatTime(record.NextReview),
			formatTime(record.LastStudied),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write progress row: %w", err)
		}
	}
	return f.SetColWidth(sheet, "A", "J", 16)
}

func (s *exportService) writeSessionSheet(f *excelize.File, headerStyle int, sessions []SessionHistoryItem) error {
	const sheet = "Sessions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	header := []interface{}{
		"Session ID", "Deck ID", "Mode", "Status", "Started",
		"Duration (min)", "Cards Studied", "Accuracy (%)", "Best Streak", "Rating",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write session header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", headerStyle); err != nil {
		return fmt.Errorf("failed to style session header: %w", err)
	}

	for i, item := range sessions {
		row := []interface{}{
			item.SessionID,
			item.DeckID,
			string(item.StudyMode),
			string(item.Status),
			item.StartedAt.Format("2006-01-02 15:04"),
			item.DurationMinutes,
			item.CardsStudied,
			round1(item.Accuracy),
			item.BestStreak,
			item.PerformanceRating,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write session row: %w", err)
		}
	}
	return f.SetColWidth(sheet, "A", "J", 18)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
