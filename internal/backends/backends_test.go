package backends

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceRequest = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:cat="http://catalog.globalbooks.com/">
<soapenv:Body><cat:getBookPriceRequest><cat:bookId>%s</cat:bookId></cat:getBookPriceRequest></soapenv:Body></soapenv:Envelope>`

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCatalog_Price(t *testing.T) {
	s := NewServices()

	rec := do(t, s.Router(), http.MethodPost, "/ws", "text/xml", strings.Replace(priceRequest, "%s", "B2", 1))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<ns2:price>15.50</ns2:price>")
}

func TestCatalog_UnknownBookFaults(t *testing.T) {
	s := NewServices()

	rec := do(t, s.Router(), http.MethodPost, "/ws", "text/xml", strings.Replace(priceRequest, "%s", "NOPE", 1))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "<faultstring>Book not found: NOPE</faultstring>")
}

func TestCatalog_BadRequest(t *testing.T) {
	rec := do(t, NewServices().Router(), http.MethodPost, "/ws", "text/xml", "<nope/>")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders_CreateAndGet(t *testing.T) {
	s := NewServices()
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/orders", "application/json",
		`{"customerId":"C1","items":[{"bookId":"B1","quantity":2}],"totalAmount":19.98}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.OrderID)

	order, ok := s.Orders.Lookup(created.OrderID)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("19.98").Equal(order.TotalAmount))
	assert.Equal(t, 1, s.Orders.Count())

	rec = do(t, h, http.MethodGet, "/api/v1/orders/"+created.OrderID, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customerId":"C1"`)

	rec = do(t, h, http.MethodGet, "/api/v1/orders/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_RejectsIncompleteOrder(t *testing.T) {
	rec := do(t, NewServices().Router(), http.MethodPost, "/api/v1/orders", "application/json", `{"customerId":"C1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayments_Limit(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "19.98", want: "SUCCESS"},
		{amount: "500", want: "SUCCESS"},
		{amount: "500.01", want: "FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			s := NewServices()
			rec := do(t, s.Router(), http.MethodPost, "/api/v1/payments/initiate", "application/json",
				`{"orderId":"ORD-1","customerId":"C1","amount":`+tt.amount+`,"paymentMethod":"CARD"}`)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"`+tt.want+`"}`, rec.Body.String())

			_, charged := s.Payments.Charged("ORD-1")
			assert.Equal(t, tt.want == "SUCCESS", charged)
		})
	}
}

func TestShipping_Create(t *testing.T) {
	s := NewServices()
	form := url.Values{"orderId": {"ORD-1"}, "customerId": {"C1"}, "shippingAddress": {"X"}, "carrier": {"FedEx"}}

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/shippings", "application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusCreated, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	sh, ok := s.Shipping.Lookup("ORD-1")
	require.True(t, ok)
	assert.Equal(t, "FedEx", sh.Carrier)
	assert.Contains(t, string(body), sh.TrackingNumber)
	assert.True(t, strings.HasPrefix(sh.TrackingNumber, "TRK-"))
}

func TestShipping_Down(t *testing.T) {
	s := NewServices()
	s.Shipping.SetDown(true)
	form := url.Values{"orderId": {"ORD-1"}}

	rec := do(t, s.Router(), http.MethodPost, "/api/v1/shippings", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, s.Shipping.Count())
}
