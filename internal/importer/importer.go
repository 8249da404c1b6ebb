// Package importer loads books in bulk from Excel or CSV spreadsheets.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bookshelf/internal/jalali"
	"bookshelf/internal/models"

	"github.com/xuri/excelize/v2"
)

// Shelf is what the importer needs from the library service
type Shelf interface {
	ListBooks(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error)
	AddBook(ctx context.Context, userID string, in models.BookInput) (models.Book, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	SheetName        string // Name of the sheet to import, the first sheet when empty
	TitleColumn      string
	AuthorColumn     string
	TranslatorColumn string
	PublisherColumn  string
	GenreColumn      string
	TotalPagesColumn string
	StatusColumn     string
	ReadPagesColumn  string
	StartRow         int              // The row to start importing from (1-based index)
	Now              func() time.Time // Start date given to rows imported as reading
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:        "Sheet1",
		TitleColumn:      "A",
		AuthorColumn:     "B",
		TranslatorColumn: "C",
		PublisherColumn:  "D",
		GenreColumn:      "E",
		TotalPagesColumn: "F",
		StatusColumn:     "G",
		ReadPagesColumn:  "H",
		StartRow:         2, // skip header
		Now:              time.Now,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportBooks imports books for userID from the file in config.
// The format is picked by extension: .csv is read as CSV, anything else as Excel.
func ImportBooks(ctx context.Context, shelf Shelf, userID string, config ImportConfig) (*ImportResult, error) {
	f, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return ImportCSV(ctx, shelf, userID, f, config)
	}
	return ImportExcel(ctx, shelf, userID, f, config)
}

// ImportExcel imports books from an xlsx workbook
func ImportExcel(ctx context.Context, shelf Shelf, userID string, r io.Reader, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return importRows(ctx, shelf, userID, rows, config)
}

// ImportCSV imports books from CSV with the same column layout as the Excel import
func ImportCSV(ctx context.Context, shelf Shelf, userID string, r io.Reader, config ImportConfig) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return importRows(ctx, shelf, userID, rows, config)
}

func importRows(ctx context.Context, shelf Shelf, userID string, rows [][]string, config ImportConfig) (*ImportResult, error) {
	existing, err := shelf.ListBooks(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get existing books: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, b := range existing {
		seen[bookKey(b.Title, b.Author)] = true
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow || blank(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.TotalProcessed++
		in, err := parseRow(row, config)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		key := bookKey(*in.Title, *in.Author)
		if seen[key] {
			result.Skipped++
			continue
		}
		if _, err := shelf.AddBook(ctx, userID, in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		seen[key] = true
		result.Created++
	}
	return result, nil
}

func parseRow(row []string, config ImportConfig) (models.BookInput, error) {
	title := cell(row, config.TitleColumn)
	author := cell(row, config.AuthorColumn)
	if title == "" {
		return models.BookInput{}, errors.New("title cannot be empty")
	}
	if author == "" {
		return models.BookInput{}, errors.New("author cannot be empty")
	}

	in := models.BookInput{Title: &title, Author: &author}
	for _, field := range []struct {
		dst    **string
		column string
	}{
		{&in.Translator, config.TranslatorColumn},
		{&in.Publisher, config.PublisherColumn},
		{&in.Genre, config.GenreColumn},
	} {
		if v := cell(row, field.column); v != "" {
			*field.dst = models.String(v)
		}
	}

	if v := cell(row, config.TotalPagesColumn); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return models.BookInput{}, fmt.Errorf("total pages: %w", err)
		}
		in.TotalPages = &n
	}

	if v := cell(row, config.StatusColumn); v != "" {
		status := models.BookStatus(strings.ToLower(v))
		if !status.Valid() {
			return models.BookInput{}, fmt.Errorf("unknown status %q", v)
		}
		in.Status = &status
		if status == models.StatusReading {
			now := time.Now
			if config.Now != nil {
				now = config.Now
			}
			started := now()
			in.StartedDate = &started
		}
	}

	if v := cell(row, config.ReadPagesColumn); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return models.BookInput{}, fmt.Errorf("read pages: %w", err)
		}
		in.ReadPages = &n
	}
	return in, nil
}

// cell returns the trimmed value of column in row, or "" when the column is unset or missing
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// parseCount accepts Latin, Persian and Arabic digits
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(jalali.LatinDigits(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}

func bookKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
