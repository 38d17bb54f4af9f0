// Package backends holds in-memory stand-ins for the catalog, orders,
// payments and shipping services. They speak the same wire contracts as the
// real collaborators and are meant for local runs and end-to-end tests.
package backends

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

type priceRequestEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Request *struct {
			BookID string `xml:"bookId"`
		} `xml:"getBookPriceRequest"`
	} `xml:"Body"`
}

type priceResponseEnvelope struct {
	XMLName xml.Name          `xml:"SOAP-ENV:Envelope"`
	EnvNS   string            `xml:"xmlns:SOAP-ENV,attr"`
	Body    priceResponseBody `xml:"SOAP-ENV:Body"`
}

type priceResponseBody struct {
	Response *priceResponse `xml:"ns2:getBookPriceResponse,omitempty"`
	Fault    *fault         `xml:"SOAP-ENV:Fault,omitempty"`
}

type priceResponse struct {
	NS    string `xml:"xmlns:ns2,attr"`
	Price string `xml:"ns2:price"`
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// Catalog answers getBookPriceRequest calls from an in-memory price table.
type Catalog struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewCatalog() *Catalog {
	return &Catalog{
		prices: map[string]decimal.Decimal{
			"B1": decimal.RequireFromString("9.99"),
			"B2": decimal.RequireFromString("15.50"),
			"B3": decimal.RequireFromString("42.00"),
			"B4": decimal.RequireFromString("120.00"),
		},
	}
}

func (c *Catalog) SetPrice(bookID string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[bookID] = price
}

func (c *Catalog) price(bookID string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[bookID]
	return p, ok
}

func (c *Catalog) ServePrice(w http.ResponseWriter, r *http.Request) {
	var env priceRequestEnvelope
	if err := xml.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&env); err != nil || env.Body.Request == nil {
		writeEnvelope(w, http.StatusBadRequest, priceResponseBody{Fault: &fault{Code: "SOAP-ENV:Client", String: "invalid getBookPriceRequest"}})
		return
	}

	bookID := strings.TrimSpace(env.Body.Request.BookID)
	price, ok := c.price(bookID)
	if !ok {
		slog.InfoContext(r.Context(), "catalog: unknown book", "book_id", bookID)
		writeEnvelope(w, http.StatusInternalServerError, priceResponseBody{
			Fault: &fault{Code: "SOAP-ENV:Server", String: fmt.Sprintf("Book not found: %s", bookID)},
		})
		return
	}

	writeEnvelope(w, http.StatusOK, priceResponseBody{Response: &priceResponse{
		NS:    "http://catalog.globalbooks.com/",
		Price: price.StringFixed(2),
	}})
}

func writeEnvelope(w http.ResponseWriter, status int, body priceResponseBody) {
	out, err := xml.Marshal(priceResponseEnvelope{EnvNS: "http://schemas.xmlsoap.org/soap/envelope/", Body: body})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	_, _ = w.Write(out)
}
