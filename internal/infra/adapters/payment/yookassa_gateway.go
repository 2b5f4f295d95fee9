package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-resume-board/internal/config"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*YooKassaGateway)(nil)

// YooKassaGateway implements adapter.PaymentGateway against the YooKassa REST v3 API.
// Payments are created with capture=true so a paid checkout ends in "succeeded".
type YooKassaGateway struct {
	shopID    string
	secretKey string
	returnURL string
	baseURL   string
	client    *http.Client
	log       *zerolog.Logger
}

func NewYooKassaGateway(cfg config.YooKassaConfig, logger *zerolog.Logger) (*YooKassaGateway, error) {
	if cfg.ShopID == "" || cfg.SecretKey == "" {
		return nil, errors.New("yookassa shop id and secret key are required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid yookassa base url %q", cfg.BaseURL)
	}
	l := logger.With().Str("component", "YooKassaGateway").Logger()
	return &YooKassaGateway{
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		returnURL: cfg.ReturnURL,
		baseURL:   base,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       &l,
	}, nil
}

func (g *YooKassaGateway) Name() string { return "yookassa" }

type yooAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooPayment struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Paid         bool   `json:"paid"`
	Confirmation struct {
		Type            string `json:"type"`
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

type yooError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CreatePayment opens a redirect checkout for amount whole roubles.
func (g *YooKassaGateway) CreatePayment(ctx context.Context, amount int64, description, payerRef string) (string, string, error) {
	payload := map[string]any{
		"amount": yooAmount{Value: fmt.Sprintf("%d.00", amount), Currency: "RUB"},
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": g.returnURL,
		},
		"capture":     true,
		"description": description,
		"metadata":    map[string]string{"telegram_id": payerRef},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())

	var out yooPayment
	if err := g.do(req, &out); err != nil {
		return "", "", fmt.Errorf("yookassa create: %w", err)
	}
	if out.ID == "" || out.Confirmation.ConfirmationURL == "" {
		return "", "", errors.New("yookassa create: response without id or confirmation url")
	}
	g.log.Info().Str("payment_id", out.ID).Str("payer", payerRef).Msg("payment created")
	return out.Confirmation.ConfirmationURL, out.ID, nil
}

// CheckStatus maps the provider status onto the three states the bot knows.
// waiting_for_capture counts as pending because capture is automatic.
func (g *YooKassaGateway) CheckStatus(ctx context.Context, transactionRef string) (model.PaymentStatus, error) {
	if transactionRef == "" {
		return "", errors.New("yookassa check: empty payment id")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payments/"+url.PathEscape(transactionRef), nil)
	if err != nil {
		return "", err
	}
	var out yooPayment
	if err := g.do(req, &out); err != nil {
		return "", fmt.Errorf("yookassa check: %w", err)
	}
	switch out.Status {
	case "succeeded":
		return model.PaymentSucceeded, nil
	case "canceled":
		return model.PaymentFailed, nil
	default:
		return model.PaymentPending, nil
	}
}

func (g *YooKassaGateway) do(req *http.Request, out any) error {
	req.SetBasicAuth(g.shopID, g.secretKey)
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e yooError
		if json.Unmarshal(body, &e) == nil && e.Description != "" {
			return fmt.Errorf("http %d: %s (%s)", resp.StatusCode, e.Description, e.Code)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
