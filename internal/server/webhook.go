package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleWebhook accepts raw processor notifications. The response contract
// is deliberately narrow: 400 when the delivery cannot be authenticated or
// parsed, 200 for everything else so the sender stops retrying.
func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable payload"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if err := s.engineWebhook.Ingest(c.Request.Context(), payload, sigHeader); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c.Status(http.StatusOK)
}
