package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookshelf/internal/library"
	"bookshelf/internal/models"
	"bookshelf/internal/notify"
	"bookshelf/internal/storage/stubs"
)

const testToken = "123456:test-token"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server *Server
	db     *stubs.MockDB
}

func newTestServer(t *testing.T, devMode bool) *testServer {
	t.Helper()
	db := stubs.NewMockDB()
	lib := library.New(db, notify.NewHub(zap.NewNop()), zap.NewNop())
	auth := NewAuthenticator(testToken, []int64{42}, devMode, zap.NewNop())
	return &testServer{server: NewServer(lib, auth, nil, zap.NewNop()), db: db}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(DevUserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBooks_CreateProgressAndList(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{
		"title": "Dune", "author": "Frank Herbert", "total_pages": 412,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	book := decode[models.Book](t, rec)
	assert.Equal(t, models.StatusUnread, book.Status)
	assert.Equal(t, "42", book.UserID)

	rec = ts.do(t, http.MethodPost, "/api/books/"+book.ID+"/progress", "42", map[string]any{"current_page": 120})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	book = decode[models.Book](t, rec)
	assert.Equal(t, models.StatusReading, book.Status)
	assert.Equal(t, 120, book.ReadPages)

	rec = ts.do(t, http.MethodGet, "/api/books?status=reading", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Book](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/books?status=lost", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stats", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.BookStats](t, rec).TotalBooks)
}

func TestBooks_OtherUserGetsNotFound(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{"title": "Dune", "author": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Book](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/books/"+book.ID, "7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/books/"+book.ID, "42", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{"title": "No author"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "author is required")

	rec = ts.do(t, http.MethodPost, "/api/books/missing/progress", "42", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/chart?period=yearly", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.db.Fail(errors.New("connection reset"))
	rec = ts.do(t, http.MethodGet, "/api/goals", "42", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[ErrorResponse](t, rec).Error)
}

func TestLoans_LendTwiceConflicts(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{"title": "Dune", "author": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Book](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/loans", "42", map[string]any{"book_id": book.ID, "borrower_name": "Sara"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[models.Loan](t, rec)
	assert.Equal(t, "Dune", loan.BookTitle)

	rec = ts.do(t, http.MethodPost, "/api/loans", "42", map[string]any{"book_id": book.ID, "borrower_name": "Ali"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/loans/"+loan.ID+"/return", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Loan](t, rec).IsReturned)

	rec = ts.do(t, http.MethodGet, "/api/loans?open=true", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Loan](t, rec))
}

func TestGoals_CreateAndProgress(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodPost, "/api/goals", "42", map[string]any{
		"title": "Pages", "type": "pages", "period": "daily", "target_value": 40,
		"start_date": time.Now().Add(-time.Hour), "end_date": time.Now().AddDate(0, 1, 0),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[models.Goal](t, rec)
	assert.True(t, goal.IsActive)

	rec = ts.do(t, http.MethodPut, "/api/goals/"+goal.ID+"/active", "42", map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Goal](t, rec).IsActive)

	rec = ts.do(t, http.MethodGet, "/api/goals/"+goal.ID+"/progress", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.GoalWithProgress](t, rec).Progress.Progress)

	rec = ts.do(t, http.MethodGet, "/api/goals?active=true", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.GoalWithProgress](t, rec))
}

func TestQuotes_DailyQuote(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/quotes/daily", "42", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{"title": "Dune", "author": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Book](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/quotes", "42", map[string]any{"book_id": book.ID, "quote": "Fear is the mind-killer.", "page": 8})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/quotes/daily", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decode[models.Quote](t, rec)
	assert.Equal(t, "Fear is the mind-killer.", quote.Text)
	assert.Equal(t, "Dune", quote.Title)
}

func TestNotes_CRUD(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodPost, "/api/books", "42", map[string]any{"title": "Dune", "author": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Book](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/books/"+book.ID+"/notes", "42", map[string]any{"title": "Spice", "content": "must flow"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[models.Note](t, rec)

	rec = ts.do(t, http.MethodPatch, "/api/notes/"+note.ID, "42", map[string]any{"content": "must keep flowing"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "must keep flowing", decode[models.Note](t, rec).Content)

	rec = ts.do(t, http.MethodGet, "/api/books/"+book.ID+"/notes", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Note](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/notes/"+note.ID, "42", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDevMode_RequiresUserHeader(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signedInitData(userID int64, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAH")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Sara"}`)
	values.Set("hash", SignInitData(testToken, values))
	return values.Encode()
}

func TestMiddleware_InitData(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid", "tma " + signedInitData(42, time.Now()), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer " + signedInitData(42, time.Now()), http.StatusUnauthorized},
		{"not allowed", "tma " + signedInitData(7, time.Now()), http.StatusUnauthorized},
		{"too old", "tma " + signedInitData(42, time.Now().Add(-25*time.Hour)), http.StatusUnauthorized},
		{"tampered", "tma " + signedInitData(42, time.Now()) + "&extra=1", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.server.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestValidateInitData_ReturnsUser(t *testing.T) {
	auth := NewAuthenticator(testToken, []int64{42}, false, zap.NewNop())
	userID, err := auth.ValidateInitData(signedInitData(42, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = auth.ValidateInitData("")
	assert.Error(t, err)

	other := NewAuthenticator("other-token", []int64{42}, false, zap.NewNop())
	_, err = other.ValidateInitData(signedInitData(42, time.Now()))
	assert.Error(t, err)
}

func TestWebhook_DispatchesUpdate(t *testing.T) {
	db := stubs.NewMockDB()
	lib := library.New(db, notify.NewHub(zap.NewNop()), zap.NewNop())
	received := make(chan tgbotapi.Update, 1)
	server := NewServer(lib, NewAuthenticator(testToken, nil, false, zap.NewNop()), func(u tgbotapi.Update) {
		received <- u
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/telegram-webhook", bytes.NewBufferString(`{"update_id": 99}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case u := <-received:
		assert.Equal(t, 99, u.UpdateID)
	case <-time.After(time.Second):
		t.Fatal("webhook handler was not called")
	}

	req = httptest.NewRequest(http.MethodPost, "/telegram-webhook", bytes.NewBufferString(`not json`))
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
