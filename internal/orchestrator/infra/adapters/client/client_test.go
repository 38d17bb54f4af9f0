package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

const priceReply = `<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <ns2:getBookPriceResponse xmlns:ns2="http://catalog.globalbooks.com/">
      <ns2:price>12.45</ns2:price>
    </ns2:getBookPriceResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const notFoundFault = `<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Server</faultcode>
      <faultstring>Book not found: B404</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func TestCatalogClient_LookupPrice(t *testing.T) {
	var gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, priceReply)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.Client(), srv.URL, SingleAttempt())
	price, err := c.LookupPrice(context.Background(), "B1")

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.45").Equal(price))
	assert.Contains(t, gotContentType, "text/xml")
	assert.Contains(t, gotBody, `xmlns:cat="http://catalog.globalbooks.com/"`)
	assert.Contains(t, gotBody, "<cat:getBookPriceRequest><cat:bookId>B1</cat:bookId></cat:getBookPriceRequest>")
}

func TestCatalogClient_EscapesBookID(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, priceReply)
	}))
	defer srv.Close()

	_, err := NewCatalogClient(srv.Client(), srv.URL, SingleAttempt()).LookupPrice(context.Background(), "<B&1>")

	require.NoError(t, err)
	assert.Contains(t, gotBody, "&lt;B&amp;1&gt;")
}

func TestCatalogClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "http not found", status: http.StatusNotFound, wantErr: entity.ErrNotFound},
		{name: "not found fault", status: http.StatusInternalServerError, body: notFoundFault, wantErr: entity.ErrNotFound},
		{name: "other fault", status: http.StatusInternalServerError, body: strings.Replace(notFoundFault, "Book not found: B404", "database down", 1), wantErr: entity.ErrUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, body: "upstream", wantErr: entity.ErrUnavailable},
		{name: "no price element", status: http.StatusOK, body: "<Envelope><Body/></Envelope>", wantErr: entity.ErrUnavailable},
		{name: "unparseable price", status: http.StatusOK, body: "<Envelope><Body><price>cheap</price></Body></Envelope>", wantErr: entity.ErrUnavailable},
		{name: "not xml", status: http.StatusOK, body: "<<<", wantErr: entity.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewCatalogClient(srv.Client(), srv.URL, SingleAttempt()).LookupPrice(context.Background(), "B404")

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCatalogClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCatalogClient(nil, url, SingleAttempt()).LookupPrice(context.Background(), "B1")

	assert.True(t, errors.Is(err, entity.ErrUnavailable), "got %v", err)
}

func TestOrdersClient_CreateOrder(t *testing.T) {
	var got createOrderPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"orderId":"ORD-7"}`)
	}))
	defer srv.Close()

	c := NewOrdersClient(srv.Client(), srv.URL+"/", SingleAttempt())
	items := []entity.OrderItem{{BookID: "B1", Quantity: 2}, {BookID: "B2", Quantity: 1}}
	id, err := c.CreateOrder(context.Background(), "C1", items, decimal.RequireFromString("35.48"))

	require.NoError(t, err)
	assert.Equal(t, "ORD-7", id)
	assert.Equal(t, "C1", got.CustomerID)
	assert.Equal(t, json.Number("35.48"), got.TotalAmount)
	assert.Equal(t, []orderItemPayload{{BookID: "B1", Quantity: 2}, {BookID: "B2", Quantity: 1}}, got.Items)
}

func TestOrdersClient_OrderIDShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "string id", body: `{"orderId":"abc"}`, want: "abc"},
		{name: "numeric id", body: `{"orderId":1042}`, want: "1042"},
		{name: "missing id", body: `{}`, wantErr: true},
		{name: "null id", body: `{"orderId":null}`, wantErr: true},
		{name: "object id", body: `{"orderId":{"v":1}}`, wantErr: true},
		{name: "not json", body: `order created`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			id, err := NewOrdersClient(srv.Client(), srv.URL, SingleAttempt()).
				CreateOrder(context.Background(), "C1", []entity.OrderItem{{BookID: "B1", Quantity: 1}}, decimal.NewFromInt(1))

			if tt.wantErr {
				assert.True(t, errors.Is(err, entity.ErrUnavailable), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPaymentsClient_InitiatePayment(t *testing.T) {
	var got initiatePaymentPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments/initiate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"status":"PROCESSING"}`)
	}))
	defer srv.Close()

	status, err := NewPaymentsClient(srv.Client(), srv.URL, SingleAttempt()).
		InitiatePayment(context.Background(), "ORD-1", "C1", decimal.RequireFromString("19.98"), "CARD")

	require.NoError(t, err)
	assert.Equal(t, entity.PaymentProcessing, status)
	assert.Equal(t, initiatePaymentPayload{OrderID: "ORD-1", CustomerID: "C1", Amount: "19.98", PaymentMethod: "CARD"}, got)
}

func TestPaymentsClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"x"}`},
		{name: "empty status", status: http.StatusOK, body: `{"status":""}`},
		{name: "malformed", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewPaymentsClient(srv.Client(), srv.URL, SingleAttempt()).
				InitiatePayment(context.Background(), "ORD-1", "C1", decimal.NewFromInt(1), "CARD")

			assert.True(t, errors.Is(err, entity.ErrUnavailable), "got %v", err)
		})
	}
}

func TestShippingClient_CreateShipment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/shippings", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ORD-1", r.PostForm.Get("orderId"))
		assert.Equal(t, "C1", r.PostForm.Get("customerId"))
		assert.Equal(t, "1 Main St & Co", r.PostForm.Get("shippingAddress"))
		assert.Equal(t, "FedEx", r.PostForm.Get("carrier"))
		_, _ = io.WriteString(w, `{"trackingNumber":"TRK-9"}`)
	}))
	defer srv.Close()

	tracking, err := NewShippingClient(srv.Client(), srv.URL, SingleAttempt()).
		CreateShipment(context.Background(), "ORD-1", "C1", "1 Main St & Co", entity.DefaultCarrier)

	require.NoError(t, err)
	assert.Equal(t, "TRK-9", tracking)
}

func TestShippingClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewShippingClient(srv.Client(), srv.URL, SingleAttempt()).
		CreateShipment(context.Background(), "ORD-1", "C1", "addr", entity.DefaultCarrier)

	assert.True(t, errors.Is(err, entity.ErrUnavailable), "got %v", err)
}

func TestRetryPolicy(t *testing.T) {
	t.Run("single attempt by default", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewPaymentsClient(srv.Client(), srv.URL, RetryPolicy{}).
			InitiatePayment(context.Background(), "ORD-1", "C1", decimal.NewFromInt(1), "CARD")

		assert.Error(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("retries until success", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `{"status":"SUCCESS"}`)
		}))
		defer srv.Close()

		policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
		status, err := NewPaymentsClient(srv.Client(), srv.URL, policy).
			InitiatePayment(context.Background(), "ORD-1", "C1", decimal.NewFromInt(1), "CARD")

		require.NoError(t, err)
		assert.Equal(t, entity.PaymentSuccess, status)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewShippingClient(srv.Client(), srv.URL, RetryPolicy{MaxAttempts: 2}).
			CreateShipment(context.Background(), "ORD-1", "C1", "addr", entity.DefaultCarrier)

		assert.True(t, errors.Is(err, entity.ErrUnavailable), "got %v", err)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("not found is never retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewCatalogClient(srv.Client(), srv.URL, RetryPolicy{MaxAttempts: 5}).
			LookupPrice(context.Background(), "B404")

		assert.True(t, errors.Is(err, entity.ErrNotFound), "got %v", err)
		assert.Equal(t, int32(1), hits.Load())
	})
}
