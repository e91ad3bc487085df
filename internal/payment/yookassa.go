// Package payment integrates the YooKassa gateway: payment creation and the
// idempotent webhook consumption that extends or provisions subscriptions.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const yooKassaAPI = "https://api.yookassa.ru/v3/payments"

// YooKassa creates payments through the gateway REST API.
type YooKassa struct {
	shopID    string
	secretKey string
	client    *http.Client
}

func NewYooKassa(shopID, secretKey string) *YooKassa {
	return &YooKassa{
		shopID:    shopID,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreatedPayment is the part of the gateway response the funnel needs.
type CreatedPayment struct {
	ID              string
	Status          string
	ConfirmationURL string
}

type paymentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	Description string `json:"description"`
}

// CreatePayment registers a charge of amount rubles for days of subscription.
// The Idempotence-Key header makes gateway-side retries safe; metadata carries
// everything the webhook needs to provision without extra lookups.
func (y *YooKassa) CreatePayment(ctx context.Context, amount float64, days int, email, telegramID, returnURL string) (*CreatedPayment, error) {
	if email == "" {
		email = fmt.Sprintf("user_%d@vpn.local", time.Now().Unix())
	}
	description := fmt.Sprintf("VPN подписка на %d дней", days)
	body := map[string]any{
		"amount":       map[string]any{"value": fmt.Sprintf("%.2f", amount), "currency": "RUB"},
		"confirmation": map[string]string{"type": "redirect", "return_url": returnURL},
		"capture":      true,
		"description":  description,
		"receipt": map[string]any{
			"customer": map[string]string{"email": email},
			"items": []any{map[string]any{
				"description":     description,
				"quantity":        "1.00",
				"amount":          map[string]any{"value": fmt.Sprintf("%.2f", amount), "currency": "RUB"},
				"vat_code":        1,
				"payment_mode":    "full_payment",
				"payment_subject": "service",
			}},
		},
		"metadata": map[string]any{
			"email":        email,
			"telegramId":   telegramID,
			"planDuration": days,
		},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, yooKassaAPI, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(y.shopID, y.secretKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yookassa request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Description string `json:"description"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Description == "" {
			apiErr.Description = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("yookassa error: %s", apiErr.Description)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, err
	}
	return &CreatedPayment{
		ID:              pr.ID,
		Status:          pr.Status,
		ConfirmationURL: pr.Confirmation.ConfirmationURL,
	}, nil
}
