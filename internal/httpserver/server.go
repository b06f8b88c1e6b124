// Package httpserver is the optional HTTP front door: a thin pass-through
// to the orchestrator with no independent logic.
package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/querypilot/querypilot-cli/internal/orchestrator"
)

type Server struct {
	orch   *orchestrator.Orchestrator
	engine *gin.Engine
}

func New(orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		orch:   orch,
		engine: gin.Default(),
	}

	s.engine.Use(requestID())

	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/chat", s.handleChat)

	return s
}

// Run listens and serves on the given address until the process exits.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestID tags every response so log lines can be correlated
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", uuid.NewString())
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "querypilot",
		"usage":   "POST /chat with {\"prompt\": \"your question\"}",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// The orchestrator never errors; failures arrive as report text
	report := s.orch.Execute(c.Request.Context(), req.Prompt)
	c.JSON(http.StatusOK, gin.H{"response": report})
}
