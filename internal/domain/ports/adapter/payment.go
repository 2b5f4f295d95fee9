package adapter

import (
	"context"

	"telegram-resume-board/internal/domain/model"
)

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string
	// CreatePayment opens a checkout and returns where to send the payer and the provider's transaction reference.
	CreatePayment(ctx context.Context, amount int64, description, payerRef string) (checkoutURL, transactionRef string, err error)
	CheckStatus(ctx context.Context, transactionRef string) (model.PaymentStatus, error)
}
