package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

const paymentsPath = "/api/v1/payments/initiate"

type initiatePaymentPayload struct {
	OrderID       string      `json:"orderId"`
	CustomerID    string      `json:"customerId"`
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"paymentMethod"`
}

type initiatePaymentReply struct {
	Status string `json:"status"`
}

// PaymentsClient initiates payments through the payment service's REST API.
type PaymentsClient struct {
	endpoint
}

var _ ports.PaymentService = (*PaymentsClient)(nil)

func NewPaymentsClient(httpClient *http.Client, baseURL string, retry RetryPolicy) *PaymentsClient {
	return &PaymentsClient{endpoint: newEndpoint(httpClient, baseURL, paymentsPath, retry)}
}

func (c *PaymentsClient) InitiatePayment(ctx context.Context, orderID, customerID string, amount decimal.Decimal, method string) (entity.PaymentStatus, error) {
	body, err := json.Marshal(initiatePaymentPayload{
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        json.Number(amount.String()),
		PaymentMethod: method,
	})
	if err != nil {
		return "", fmt.Errorf("%w: payments: encode request: %v", entity.ErrUnavailable, err)
	}

	var status entity.PaymentStatus
	err = c.exchange(ctx, "payments",
		jsonRequest(c.url, body),
		func(resp *http.Response) error {
			if !isSuccess(resp.StatusCode) {
				return unexpectedStatus("payments", resp)
			}
			var reply initiatePaymentReply
			if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
				return fmt.Errorf("%w: payments: malformed response: %v", entity.ErrUnavailable, err)
			}
			if strings.TrimSpace(reply.Status) == "" {
				return fmt.Errorf("%w: payments: response has no status", entity.ErrUnavailable)
			}
			status = entity.PaymentStatus(strings.TrimSpace(reply.Status))
			return nil
		},
	)
	if err != nil {
		return "", err
	}
	return status, nil
}
