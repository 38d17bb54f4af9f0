package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

const ordersPath = "/api/v1/orders"

type orderItemPayload struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type createOrderPayload struct {
	CustomerID  string             `json:"customerId"`
	Items       []orderItemPayload `json:"items"`
	TotalAmount json.Number        `json:"totalAmount"`
}

type createOrderReply struct {
	OrderID flexibleID `json:"orderId"`
}

// flexibleID accepts an identifier encoded either as a JSON string or a number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("orderId must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// OrdersClient creates orders through the order service's REST API.
type OrdersClient struct {
	endpoint
}

var _ ports.OrderService = (*OrdersClient)(nil)

func NewOrdersClient(httpClient *http.Client, baseURL string, retry RetryPolicy) *OrdersClient {
	return &OrdersClient{endpoint: newEndpoint(httpClient, baseURL, ordersPath, retry)}
}

func (c *OrdersClient) CreateOrder(ctx context.Context, customerID string, items []entity.OrderItem, total decimal.Decimal) (string, error) {
	payload := createOrderPayload{
		CustomerID:  customerID,
		Items:       make([]orderItemPayload, len(items)),
		TotalAmount: json.Number(total.String()),
	}
	for i, it := range items {
		payload.Items[i] = orderItemPayload{BookID: it.BookID, Quantity: it.Quantity}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: orders: encode request: %v", entity.ErrUnavailable, err)
	}

	var orderID string
	err = c.exchange(ctx, "orders",
		jsonRequest(c.url, body),
		func(resp *http.Response) error {
			if !isSuccess(resp.StatusCode) {
				return unexpectedStatus("orders", resp)
			}
			var reply createOrderReply
			if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
				return fmt.Errorf("%w: orders: malformed response: %v", entity.ErrUnavailable, err)
			}
			if reply.OrderID == "" {
				return fmt.Errorf("%w: orders: response has no orderId", entity.ErrUnavailable)
			}
			orderID = string(reply.OrderID)
			return nil
		},
	)
	if err != nil {
		return "", err
	}
	return orderID, nil
}

func jsonRequest(url string, body []byte) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}
