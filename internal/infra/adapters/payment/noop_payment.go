package payment

import (
	"context"
	"fmt"
	"sync"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for development and tests.
// Every payment it creates is reported as succeeded.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	intents map[string]int64 // ref -> amount (RUB)
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		intents: make(map[string]int64),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreatePayment(ctx context.Context, amount int64, description, payerRef string) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := g.next()
	g.intents[ref] = amount
	return "https://example.test/pay/" + ref, ref, nil
}

func (g *NoopPaymentGateway) CheckStatus(ctx context.Context, transactionRef string) (model.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.intents[transactionRef]; !ok {
		return "", fmt.Errorf("noop: payment %q not found", transactionRef)
	}
	return model.PaymentSucceeded, nil
}
