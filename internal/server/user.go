package server

import (
	"net/http"
	"strconv"

	"github.com/fitretto/gymbill/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) UserInfo(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.userSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               user.ID.String(),
		"email":            user.Email,
		"name":             user.Name,
		"phone":            user.Phone,
		"birthdate":        user.Birthdate,
		"terms_accepted":   user.TermsAccepted,
		"privacy_accepted": user.PrivacyAccepted,
		"created_at":       user.CreatedAt,
	})
}

func (s *Server) UserPurchaseHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	entries, err := s.ledgerSvc.HistoryForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		out = append(out, ledgerEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"purchases": out})
}

func (s *Server) UserSubscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	subs, err := s.subscriptionSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		out = append(out, gin.H{
			"subscription_id":      sub.ID,
			"price_id":             sub.PriceID,
			"status":               sub.Status,
			"current_period_end":   sub.CurrentPeriodEnd,
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
			"trial_end":            sub.TrialEnd,
		})
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

func (s *Server) ListLedger(c *gin.Context) {
	page := pagination.Pagination{
		PageToken: c.Query("page_token"),
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		page.PageSize = size
	}

	entries, info, err := s.ledgerSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		out = append(out, ledgerEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":         out,
		"next_page_token": info.NextPageToken,
		"has_more":        info.HasMore,
	})
}
