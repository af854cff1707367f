package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/stripeapi"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	EnsureStripeCustomer(ctx context.Context, id snowflake.ID) (string, error)
}

// CustomerGateway is the slice of the payment processor API the user
// service needs for lazy customer provisioning.
type CustomerGateway interface {
	CreateCustomer(ctx context.Context, params stripeapi.CustomerParams) (*stripeapi.Customer, error)
	RetrieveCustomer(ctx context.Context, id string) (*stripeapi.Customer, error)
}

type RegisterRequest struct {
	Email           string
	Password        string
	Name            string
	Phone           string
	Birthdate       string
	TermsAccepted   bool
	PrivacyAccepted bool
}
