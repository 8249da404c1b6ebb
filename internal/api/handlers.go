package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

func (s *Server) listBooks(c *gin.Context) {
	status := models.BookStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "unknown status "+string(status))
		return
	}
	books, err := s.library.ListBooks(c.Request.Context(), currentUser(c), status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) createBook(c *gin.Context) {
	var in models.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	book, err := s.library.AddBook(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (s *Server) getBook(c *gin.Context) {
	book, err := s.library.GetBook(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) updateBook(c *gin.Context) {
	var in models.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	book, err := s.library.EditBook(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) deleteBook(c *gin.Context) {
	if err := s.library.RemoveBook(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type progressRequest struct {
	CurrentPage *int `json:"current_page"`
}

func (s *Server) updateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPage == nil {
		badRequest(c, "current_page is required")
		return
	}
	book, err := s.library.UpdateProgress(c.Request.Context(), currentUser(c), c.Param("id"), *req.CurrentPage)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.library.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) chart(c *gin.Context) {
	p, ok := period.Parse(c.DefaultQuery("period", string(models.Daily)))
	if !ok {
		badRequest(c, "period must be daily, weekly or monthly")
		return
	}
	points, err := s.library.Chart(c.Request.Context(), currentUser(c), p)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) listGoals(c *gin.Context) {
	goals, err := s.library.ListGoals(c.Request.Context(), currentUser(c), parseBool(c.Query("active")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (s *Server) createGoal(c *gin.Context) {
	var in models.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	goal, err := s.library.CreateGoal(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (s *Server) getGoal(c *gin.Context) {
	goal, err := s.library.GetGoal(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) updateGoal(c *gin.Context) {
	var in models.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	goal, err := s.library.EditGoal(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) deleteGoal(c *gin.Context) {
	if err := s.library.RemoveGoal(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) setGoalActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		badRequest(c, "is_active is required")
		return
	}
	goal, err := s.library.SetGoalActive(c.Request.Context(), currentUser(c), c.Param("id"), *req.IsActive)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) goalProgress(c *gin.Context) {
	progress, err := s.library.GoalProgress(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) listLoans(c *gin.Context) {
	loans, err := s.library.ListLoans(c.Request.Context(), currentUser(c), parseBool(c.Query("open")))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

type loanRequest struct {
	BookID       string    `json:"book_id"`
	BorrowerName string    `json:"borrower_name"`
	BorrowedAt   time.Time `json:"borrowed_at"`
	Note         string    `json:"note"`
}

func (s *Server) createLoan(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	loan, err := s.library.LendBook(c.Request.Context(), currentUser(c), req.BookID, req.BorrowerName, req.BorrowedAt, req.Note)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (s *Server) returnLoan(c *gin.Context) {
	loan, err := s.library.ReturnLoan(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (s *Server) deleteLoan(c *gin.Context) {
	if err := s.library.RemoveLoan(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listQuotes(c *gin.Context) {
	quotes, err := s.library.ListQuotes(c.Request.Context(), currentUser(c), c.Query("book_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

type quoteRequest struct {
	BookID string `json:"book_id"`
	models.QuoteInput
}

func (s *Server) createQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quote, err := s.library.AddQuote(c.Request.Context(), currentUser(c), req.BookID, req.QuoteInput)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

func (s *Server) dailyQuote(c *gin.Context) {
	quote, ok, err := s.library.DailyQuote(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) updateQuote(c *gin.Context) {
	var in models.QuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quote, err := s.library.EditQuote(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) deleteQuote(c *gin.Context) {
	if err := s.library.RemoveQuote(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.library.ListNotes(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (s *Server) createNote(c *gin.Context) {
	var in models.NoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	note, err := s.library.AddNote(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) updateNote(c *gin.Context) {
	var in models.NoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	note, err := s.library.EditNote(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) deleteNote(c *gin.Context) {
	if err := s.library.RemoveNote(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseBool accepts the query forms gin clients send ("1", "true")
func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}
