// Package api serves the bookshelf over JSON for the Telegram Mini App.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/library"
	"bookshelf/internal/storage"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the gin engine and its dependencies
type Server struct {
	engine  *gin.Engine
	library *library.Service
	auth    *Authenticator
	webhook func(tgbotapi.Update)
	logger  *zap.Logger
}

// NewServer builds the router. webhook receives Telegram updates posted to /telegram-webhook; nil disables the route.
func NewServer(lib *library.Service, auth *Authenticator, webhook func(tgbotapi.Update), logger *zap.Logger) *Server {
	s := &Server{
		engine:  gin.New(),
		library: lib,
		auth:    auth,
		webhook: webhook,
		logger:  logger,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Handler returns the http handler to serve
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if s.webhook != nil {
		s.engine.POST("/telegram-webhook", s.handleWebhook)
	}

	api := s.engine.Group("/api", s.auth.Middleware())

	books := api.Group("/books")
	books.GET("", s.listBooks)
	books.POST("", s.createBook)
	books.GET("/:id", s.getBook)
	books.PATCH("/:id", s.updateBook)
	books.DELETE("/:id", s.deleteBook)
	books.POST("/:id/progress", s.updateProgress)
	books.GET("/:id/notes", s.listNotes)
	books.POST("/:id/notes", s.createNote)

	api.GET("/stats", s.stats)
	api.GET("/chart", s.chart)

	goals := api.Group("/goals")
	goals.GET("", s.listGoals)
	goals.POST("", s.createGoal)
	goals.GET("/:id", s.getGoal)
	goals.PATCH("/:id", s.updateGoal)
	goals.DELETE("/:id", s.deleteGoal)
	goals.PUT("/:id/active", s.setGoalActive)
	goals.GET("/:id/progress", s.goalProgress)

	loans := api.Group("/loans")
	loans.GET("", s.listLoans)
	loans.POST("", s.createLoan)
	loans.POST("/:id/return", s.returnLoan)
	loans.DELETE("/:id", s.deleteLoan)

	quotes := api.Group("/quotes")
	quotes.GET("", s.listQuotes)
	quotes.POST("", s.createQuote)
	quotes.GET("/daily", s.dailyQuote)
	quotes.PATCH("/:id", s.updateQuote)
	quotes.DELETE("/:id", s.deleteQuote)

	notes := api.Group("/notes")
	notes.PATCH("/:id", s.updateNote)
	notes.DELETE("/:id", s.deleteNote)
}

func (s *Server) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Warn("Error decoding webhook update", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	// Process update in background to respond quickly to Telegram
	go s.webhook(update)
	c.Status(http.StatusOK)
}

// respondError maps library and storage errors to status codes
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	case errors.Is(err, library.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, library.ErrBookLoaned):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
