package server

import (
	"errors"
	"net/http"
	"strings"

	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	"github.com/fitretto/gymbill/internal/stripeapi"
	subscriptiondomain "github.com/fitretto/gymbill/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

type SubscriptionCheckoutRequest struct {
	PriceID    string `json:"price_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type checkoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (s *Server) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Amount <= 0 || strings.TrimSpace(req.ProductName) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	customerID, err := s.userSvc.EnsureStripeCustomer(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	session, err := s.stripe.CreateCheckoutSession(c.Request.Context(), stripeapi.CheckoutSessionParams{
		Mode:        "payment",
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
		CustomerID:  customerID,
		Amount:      req.Amount,
		Currency:    currency,
		ProductName: strings.TrimSpace(req.ProductName),
		Quantity:    quantity,
		Metadata: map[string]string{
			"user_id":      userID.String(),
			"product_name": strings.TrimSpace(req.ProductName),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordCheckoutSession()
	c.JSON(http.StatusOK, checkoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	})
}

func (s *Server) SubscriptionCheckout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req SubscriptionCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	existing, err := s.subscriptionSvc.ActiveOnPrice(c.Request.Context(), userID, priceID)
	if err != nil && !errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		AbortWithError(c, err)
		return
	}
	if existing != nil {
		AbortWithError(c, ErrConflict)
		return
	}

	customerID, err := s.userSvc.EnsureStripeCustomer(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	session, err := s.stripe.CreateCheckoutSession(c.Request.Context(), stripeapi.CheckoutSessionParams{
		Mode:       "subscription",
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		CustomerID: customerID,
		PriceID:    priceID,
		Quantity:   1,
		Metadata: map[string]string{
			"user_id": userID.String(),
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordCheckoutSession()
	c.JSON(http.StatusOK, checkoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	})
}

type subscriptionActionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

// ownedSubscription loads the subscription and checks it belongs to the
// authenticated user.
func (s *Server) ownedSubscription(c *gin.Context) (*subscriptiondomain.Subscription, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}

	var req subscriptionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SubscriptionID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return nil, false
	}

	sub, err := s.subscriptionSvc.Get(c.Request.Context(), strings.TrimSpace(req.SubscriptionID))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	if sub.UserID == nil || *sub.UserID != userID {
		AbortWithError(c, ErrForbidden)
		return nil, false
	}
	return sub, true
}

func (s *Server) CancelSubscription(c *gin.Context) {
	s.toggleCancelAtPeriodEnd(c, true)
}

func (s *Server) ReactivateSubscription(c *gin.Context) {
	s.toggleCancelAtPeriodEnd(c, false)
}

func (s *Server) toggleCancelAtPeriodEnd(c *gin.Context, cancel bool) {
	sub, ok := s.ownedSubscription(c)
	if !ok {
		return
	}

	updated, err := s.stripe.SetCancelAtPeriodEnd(c.Request.Context(), sub.ID, cancel)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.subscriptionSvc.SetCancelFlag(c.Request.Context(), sub.ID, cancel); err != nil {
		s.log.Warn("local cancel flag update failed",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_id":      updated.ID,
		"status":               updated.Status,
		"cancel_at_period_end": updated.CancelAtPeriodEnd,
	})
}

type schedulePlanChangeRequest struct {
	SubscriptionID string `json:"subscription_id"`
	NewPriceID     string `json:"new_price_id"`
}

// SchedulePlanChange reserves a plan switch at the end of the current
// billing period: the current price runs out its remaining iteration, then
// the new price takes over.
func (s *Server) SchedulePlanChange(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req schedulePlanChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.SubscriptionID) == "" ||
		strings.TrimSpace(req.NewPriceID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sub, err := s.subscriptionSvc.Get(c.Request.Context(), strings.TrimSpace(req.SubscriptionID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub.UserID == nil || *sub.UserID != userID {
		AbortWithError(c, ErrForbidden)
		return
	}

	schedule, err := s.stripe.CreateSubscriptionSchedule(c.Request.Context(), sub.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	schedule, err = s.stripe.UpdateSubscriptionSchedule(c.Request.Context(), schedule.ID, []stripeapi.SchedulePhase{
		{PriceID: sub.PriceID, Iterations: 1},
		{PriceID: strings.TrimSpace(req.NewPriceID)},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule_id":     schedule.ID,
		"subscription_id": schedule.Subscription,
		"status":          schedule.Status,
	})
}

type cancelScheduledChangeRequest struct {
	ScheduleID string `json:"schedule_id"`
}

func (s *Server) CancelScheduledChange(c *gin.Context) {
	var req cancelScheduledChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ScheduleID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schedule, err := s.stripe.ReleaseSubscriptionSchedule(c.Request.Context(), strings.TrimSpace(req.ScheduleID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule_id": schedule.ID,
		"status":      schedule.Status,
	})
}

type getCheckoutSessionRequest struct {
	SessionID string `json:"session_id"`
}

// GetCheckoutSession returns a purchase summary for the success page. The
// local ledger row is preferred when the webhook already landed; otherwise
// the processor is asked directly.
func (s *Server) GetCheckoutSession(c *gin.Context) {
	var req getCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)

	if entry, err := s.ledgerSvc.Get(c.Request.Context(), sessionID); err == nil {
		c.JSON(http.StatusOK, ledgerEntryResponse(entry))
		return
	}

	session, err := s.stripe.RetrieveCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     session.ID,
		"status":         session.Status,
		"payment_status": session.PaymentStatus,
		"amount":         session.AmountTotal,
		"currency":       session.Currency,
		"product_name":   session.Metadata["product_name"],
	})
}

func ledgerEntryResponse(entry *ledgerdomain.Entry) gin.H {
	return gin.H{
		"session_id":   entry.SessionID,
		"status":       entry.Status,
		"amount":       entry.Amount,
		"currency":     entry.Currency,
		"product_name": entry.ProductName,
		"created_at":   entry.CreatedAt,
	}
}
