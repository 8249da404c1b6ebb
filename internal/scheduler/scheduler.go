// Package scheduler sends each reader a daily digest of their active goals.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/models"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultDigestHour is the local hour the digest goes out when none is configured
const DefaultDigestHour = 8

// GoalLister is the slice of the library service the digest needs
type GoalLister interface {
	ListGoals(ctx context.Context, userID string, activeOnly bool) ([]models.GoalWithProgress, error)
}

// Notifier delivers a digest to a user
type Notifier interface {
	SendDigest(ctx context.Context, userID string, text string) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	goals     GoalLister
	notifier  Notifier
	users     []string
	hour      int
	logger    *zap.Logger
}

// New creates a scheduler that sends the digest to users every day at hour in loc
func New(goals GoalLister, notifier Notifier, users []string, hour int, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if hour < 0 || hour > 23 {
		hour = DefaultDigestHour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		goals:     goals,
		notifier:  notifier,
		users:     users,
		hour:      hour,
		logger:    logger,
	}
}

// Start schedules the digest and runs the scheduler in the background
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", s.hour)).Do(func() {
		s.RunDigest(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule goal digest: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started", zap.Int("digest_hour", s.hour), zap.Int("users", len(s.users)))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunDigest sends the digest to every user with at least one active goal.
// Failures for one user are logged and do not stop the others.
func (s *Scheduler) RunDigest(ctx context.Context) {
	for _, userID := range s.users {
		goals, err := s.goals.ListGoals(ctx, userID, true)
		if err != nil {
			s.logger.Error("Failed to load goals for digest", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if len(goals) == 0 {
			continue
		}
		if err := s.notifier.SendDigest(ctx, userID, Digest(goals)); err != nil {
			s.logger.Error("Failed to send digest", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// Digest renders the goal digest message
func Digest(goals []models.GoalWithProgress) string {
	var text strings.Builder
	text.WriteString("🎯 Your reading goals today\n\n")
	for _, g := range goals {
		mark := "⏳"
		if g.Progress.Percentage >= 100 {
			mark = "✅"
		}
		text.WriteString(fmt.Sprintf("%s %s (%s %s): %d/%d, %d%%\n",
			mark, g.Goal.Title, g.Goal.Period, g.Goal.Type,
			g.Progress.Progress, g.Goal.TargetValue, g.Progress.Percentage))
	}
	return text.String()
}
