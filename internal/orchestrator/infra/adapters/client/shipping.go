package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

const shippingPath = "/api/v1/shippings"

type createShipmentReply struct {
	TrackingNumber string `json:"trackingNumber"`
}

// ShippingClient books shipments. The shipping service takes a form-encoded
// body and answers with JSON.
type ShippingClient struct {
	endpoint
}

var _ ports.ShippingService = (*ShippingClient)(nil)

func NewShippingClient(httpClient *http.Client, baseURL string, retry RetryPolicy) *ShippingClient {
	return &ShippingClient{endpoint: newEndpoint(httpClient, baseURL, shippingPath, retry)}
}

func (c *ShippingClient) CreateShipment(ctx context.Context, orderID, customerID, address, carrier string) (string, error) {
	form := url.Values{}
	form.Set("orderId", orderID)
	form.Set("customerId", customerID)
	form.Set("shippingAddress", address)
	form.Set("carrier", carrier)
	encoded := form.Encode()

	var tracking string
	err := c.exchange(ctx, "shipping",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(encoded))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Accept", "application/json")
			return req, nil
		},
		func(resp *http.Response) error {
			if !isSuccess(resp.StatusCode) {
				return unexpectedStatus("shipping", resp)
			}
			var reply createShipmentReply
			if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
				return fmt.Errorf("%w: shipping: malformed response: %v", entity.ErrUnavailable, err)
			}
			tracking = reply.TrackingNumber
			return nil
		},
	)
	if err != nil {
		return "", err
	}
	return tracking, nil
}
