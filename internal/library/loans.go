package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/storage"
)

// LendBook records that a book went to borrower. A zero borrowedAt means now.
func (s *Service) LendBook(ctx context.Context, userID, bookID, borrower string, borrowedAt time.Time, note string) (models.Loan, error) {
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return models.Loan{}, invalid("borrower name is required")
	}

	book, err := s.GetBook(ctx, userID, bookID)
	if err != nil {
		return models.Loan{}, err
	}
	if book.IsLoaned {
		return models.Loan{}, ErrBookLoaned
	}

	now := s.now().UTC()
	if borrowedAt.IsZero() {
		borrowedAt = now
	}
	loan := models.Loan{
		ID:           s.newID(),
		UserID:       userID,
		BookID:       bookID,
		BorrowerName: borrower,
		BorrowedAt:   borrowedAt.UTC(),
		Note:         strings.TrimSpace(note),
		CreatedAt:    now,
	}
	if err := s.store.CreateLoan(ctx, loan); err != nil {
		return models.Loan{}, fmt.Errorf("failed to lend book: %w", err)
	}
	loan.BookTitle = book.Title

	s.publish(ctx, storage.TableLoans, notify.OpInsert, userID, loan.ID)
	return loan, nil
}

func (s *Service) getLoan(ctx context.Context, userID, loanID string) (models.Loan, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return models.Loan{}, err
	}
	if err := owned(userID, loan.UserID, storage.TableLoans, loanID); err != nil {
		return models.Loan{}, err
	}
	return loan, nil
}

// ReturnLoan marks a loan as returned, putting the book back on the shelf
func (s *Service) ReturnLoan(ctx context.Context, userID, loanID string) (models.Loan, error) {
	loan, err := s.getLoan(ctx, userID, loanID)
	if err != nil {
		return models.Loan{}, err
	}
	if loan.IsReturned {
		return loan, nil
	}

	if err := s.store.UpdateLoan(ctx, loanID, models.Changes{"is_returned": true}); err != nil {
		return models.Loan{}, fmt.Errorf("failed to return loan: %w", err)
	}
	loan.IsReturned = true

	s.publish(ctx, storage.TableLoans, notify.OpUpdate, userID, loanID)
	return loan, nil
}

// RemoveLoan deletes a loan record
func (s *Service) RemoveLoan(ctx context.Context, userID, loanID string) error {
	if _, err := s.getLoan(ctx, userID, loanID); err != nil {
		return err
	}
	if err := s.store.DeleteLoan(ctx, loanID); err != nil {
		return fmt.Errorf("failed to remove loan: %w", err)
	}
	s.publish(ctx, storage.TableLoans, notify.OpDelete, userID, loanID)
	return nil
}

// ListLoans returns the user's loans newest first. With openOnly, returned loans are skipped.
func (s *Service) ListLoans(ctx context.Context, userID string, openOnly bool) ([]models.Loan, error) {
	loans, err := s.store.ListLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	if !openOnly {
		return loans, nil
	}

	open := make([]models.Loan, 0, len(loans))
	for _, l := range loans {
		if !l.IsReturned {
			open = append(open, l)
		}
	}
	return open, nil
}
