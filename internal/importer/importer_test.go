package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookshelf/internal/library"
	"bookshelf/internal/models"
	"bookshelf/internal/storage/stubs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var importNow = time.Date(2024, 6, 13, 10, 0, 0, 0, time.UTC)

func newShelf(t *testing.T) *library.Service {
	t.Helper()
	return library.New(stubs.NewMockDB(), nil, zap.NewNop(),
		library.WithClock(func() time.Time { return importNow }))
}

func testConfig() ImportConfig {
	cfg := DefaultImportConfig()
	cfg.Now = func() time.Time { return importNow }
	return cfg
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	shelf := newShelf(t)

	data := strings.Join([]string{
		"title,author,translator,publisher,genre,total_pages,status,read_pages",
		"Dune,Frank Herbert,,Ace,sci-fi,412,reading,120",
		"Emma,Jane Austen,,,,,completed,",
		",Nobody,,,,,,",
		"Bad Pages,Someone,,,,many,,",
		"",
		"dune, frank herbert,,,,,,",
		"Shahnameh,Ferdowsi,,,epic,۹۹۰,,",
	}, "\n")

	result, err := ImportCSV(ctx, shelf, "u1", strings.NewReader(data), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalProcessed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Skipped, "same title and author ignoring case")
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Row 4")
	assert.Contains(t, result.Errors[1], "Row 5")

	books, err := shelf.ListBooks(ctx, "u1", "")
	require.NoError(t, err)
	byTitle := make(map[string]models.Book)
	for _, b := range books {
		byTitle[b.Title] = b
	}

	dune := byTitle["Dune"]
	assert.Equal(t, models.StatusReading, dune.Status)
	assert.Equal(t, 412, dune.TotalPages)
	assert.Equal(t, 120, dune.ReadPages)
	assert.Equal(t, "Ace", dune.Publisher)
	require.NotNil(t, dune.StartedDate)
	assert.True(t, importNow.Equal(*dune.StartedDate))

	assert.Equal(t, models.StatusCompleted, byTitle["Emma"].Status)
	assert.Equal(t, 990, byTitle["Shahnameh"].TotalPages)
}

func TestImportCSV_SkipsExistingBooks(t *testing.T) {
	ctx := context.Background()
	shelf := newShelf(t)
	_, err := shelf.AddBook(ctx, "u1", models.BookInput{Title: models.String("Dune"), Author: models.String("Frank Herbert")})
	require.NoError(t, err)

	result, err := ImportCSV(ctx, shelf, "u1", strings.NewReader("header\nDune,Frank Herbert\n"), testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)

	// another user's shelf is separate
	result, err = ImportCSV(ctx, shelf, "u2", strings.NewReader("header\nDune,Frank Herbert\n"), testConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestImportBooks_Excel(t *testing.T) {
	ctx := context.Background()
	shelf := newShelf(t)

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Title", "Author", "Translator", "Publisher", "Genre", "Pages"},
		{"The Blind Owl", "Sadegh Hedayat", "", "", "novel", 120},
		{"Savushun", "Simin Daneshvar", "", "", "", 378},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}

	path := filepath.Join(t.TempDir(), "books.xlsx")
	require.NoError(t, f.SaveAs(path))

	cfg := testConfig()
	cfg.FilePath = path
	result, err := ImportBooks(ctx, shelf, "u1", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, result.Errors)

	books, err := shelf.ListBooks(ctx, "u1", models.StatusUnread)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestImportBooks_CSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.CSV")
	require.NoError(t, os.WriteFile(path, []byte("t,a\nEmma,Jane Austen\n"), 0o600))

	cfg := testConfig()
	cfg.FilePath = path
	result, err := ImportBooks(context.Background(), newShelf(t), "u1", cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestImportBooks_MissingFile(t *testing.T) {
	cfg := testConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err := ImportBooks(context.Background(), newShelf(t), "u1", cfg)
	assert.Error(t, err)
}

func TestColumnToIndex(t *testing.T) {
	assert.Equal(t, 0, columnToIndex("A"))
	assert.Equal(t, 7, columnToIndex("h"))
	assert.Equal(t, 26, columnToIndex("AA"))
}
