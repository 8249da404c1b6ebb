package library

import (
	"context"
	"fmt"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/period"
	"bookshelf/internal/storage"
)

func validateGoal(g models.Goal) error {
	if strings.TrimSpace(g.Title) == "" {
		return invalid("title is required")
	}
	if g.Type != models.GoalPages && g.Type != models.GoalBooks {
		return invalid("type must be pages or books")
	}
	if _, ok := period.Parse(string(g.Period)); !ok {
		return invalid("period must be daily, weekly or monthly")
	}
	if g.TargetValue <= 0 {
		return invalid("target value must be positive")
	}
	if g.StartDate.IsZero() || g.EndDate.IsZero() {
		return invalid("start and end dates are required")
	}
	if g.EndDate.Before(g.StartDate) {
		return invalid("end date is before start date")
	}
	return nil
}

// CreateGoal adds a goal. Every field is required and the goal starts active unless told otherwise.
func (s *Service) CreateGoal(ctx context.Context, userID string, in models.GoalInput) (models.Goal, error) {
	goal := models.Goal{
		ID:        s.newID(),
		UserID:    userID,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	in.ApplyTo(&goal)
	goal.Title = strings.TrimSpace(goal.Title)

	if err := validateGoal(goal); err != nil {
		return models.Goal{}, err
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return models.Goal{}, fmt.Errorf("failed to create goal: %w", err)
	}
	s.publish(ctx, storage.TableGoals, notify.OpInsert, userID, goal.ID)
	return goal, nil
}

// GetGoal returns one of the user's goals
func (s *Service) GetGoal(ctx context.Context, userID, goalID string) (models.Goal, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return models.Goal{}, err
	}
	if err := owned(userID, goal.UserID, storage.TableGoals, goalID); err != nil {
		return models.Goal{}, err
	}
	return goal, nil
}

// EditGoal applies a partial edit to a goal
func (s *Service) EditGoal(ctx context.Context, userID, goalID string, in models.GoalInput) (models.Goal, error) {
	current, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return models.Goal{}, err
	}

	changes := in.Changes()
	if len(changes) == 0 {
		return current, nil
	}

	updated := current
	in.ApplyTo(&updated)
	if err := validateGoal(updated); err != nil {
		return models.Goal{}, err
	}

	if err := s.store.UpdateGoal(ctx, goalID, changes); err != nil {
		return models.Goal{}, fmt.Errorf("failed to edit goal: %w", err)
	}
	s.publish(ctx, storage.TableGoals, notify.OpUpdate, userID, goalID)
	return updated, nil
}

// SetGoalActive turns tracking of a goal on or off
func (s *Service) SetGoalActive(ctx context.Context, userID, goalID string, active bool) (models.Goal, error) {
	return s.EditGoal(ctx, userID, goalID, models.GoalInput{IsActive: models.Bool(active)})
}

// RemoveGoal deletes a goal
func (s *Service) RemoveGoal(ctx context.Context, userID, goalID string) error {
	if _, err := s.GetGoal(ctx, userID, goalID); err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return fmt.Errorf("failed to remove goal: %w", err)
	}
	s.publish(ctx, storage.TableGoals, notify.OpDelete, userID, goalID)
	return nil
}

// GoalProgress recomputes the progress of one goal
func (s *Service) GoalProgress(ctx context.Context, userID, goalID string) (models.GoalWithProgress, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return models.GoalWithProgress{}, err
	}
	p, err := s.calc.Compute(ctx, goal)
	if err != nil {
		return models.GoalWithProgress{}, err
	}
	return models.GoalWithProgress{Goal: goal, Progress: p}, nil
}

// ListGoals returns the user's goals newest first with freshly computed progress.
// With activeOnly, inactive goals are skipped.
func (s *Service) ListGoals(ctx context.Context, userID string, activeOnly bool) ([]models.GoalWithProgress, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	result := make([]models.GoalWithProgress, 0, len(goals))
	for _, g := range goals {
		if activeOnly && !g.IsActive {
			continue
		}
		p, err := s.calc.Compute(ctx, g)
		if err != nil {
			return nil, err
		}
		result = append(result, models.GoalWithProgress{Goal: g, Progress: p})
	}
	return result, nil
}
