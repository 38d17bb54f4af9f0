package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

const (
	catalogPath      = "/ws"
	catalogNamespace = "http://catalog.globalbooks.com/"
	soapEnvNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
)

type priceEnvelope struct {
	XMLName xml.Name  `xml:"soapenv:Envelope"`
	EnvNS   string    `xml:"xmlns:soapenv,attr"`
	CatNS   string    `xml:"xmlns:cat,attr"`
	Body    priceBody `xml:"soapenv:Body"`
}

type priceBody struct {
	Request priceRequest `xml:"cat:getBookPriceRequest"`
}

type priceRequest struct {
	BookID string `xml:"cat:bookId"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Reason string `xml:"Reason>Text"`
}

func (f soapFault) message() string {
	if f.String != "" {
		return strings.TrimSpace(f.String)
	}
	return strings.TrimSpace(f.Reason)
}

// CatalogClient looks up unit prices through the catalog's SOAP endpoint.
type CatalogClient struct {
	endpoint
}

var _ ports.CatalogService = (*CatalogClient)(nil)

func NewCatalogClient(httpClient *http.Client, baseURL string, retry RetryPolicy) *CatalogClient {
	return &CatalogClient{endpoint: newEndpoint(httpClient, baseURL, catalogPath, retry)}
}

func (c *CatalogClient) LookupPrice(ctx context.Context, bookID string) (decimal.Decimal, error) {
	body, err := xml.Marshal(priceEnvelope{
		EnvNS: soapEnvNamespace,
		CatNS: catalogNamespace,
		Body:  priceBody{Request: priceRequest{BookID: bookID}},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: catalog: encode request: %v", entity.ErrUnavailable, err)
	}

	var price decimal.Decimal
	err = c.exchange(ctx, "catalog",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "text/xml; charset=utf-8")
			req.Header.Set("SOAPAction", `""`)
			return req, nil
		},
		func(resp *http.Response) error {
			switch {
			case resp.StatusCode == http.StatusNotFound:
				return fmt.Errorf("catalog: book %q: %w", bookID, entity.ErrNotFound)
			case isSuccess(resp.StatusCode), resp.StatusCode == http.StatusInternalServerError:
				// SOAP faults travel with status 500.
				p, err := parsePriceResponse(resp.Body)
				if err != nil {
					return fmt.Errorf("catalog: book %q: %w", bookID, err)
				}
				price = p
				return nil
			default:
				return unexpectedStatus("catalog", resp)
			}
		},
	)
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// parsePriceResponse scans the envelope for the first price element,
// regardless of its namespace prefix.
func parsePriceResponse(r io.Reader) (decimal.Decimal, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return decimal.Zero, fmt.Errorf("%w: response has no price", entity.ErrUnavailable)
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed response: %v", entity.ErrUnavailable, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "price":
			var raw string
			if err := dec.DecodeElement(&raw, &start); err != nil {
				return decimal.Zero, fmt.Errorf("%w: malformed price: %v", entity.ErrUnavailable, err)
			}
			price, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return decimal.Zero, fmt.Errorf("%w: price %q: %v", entity.ErrUnavailable, raw, err)
			}
			return price, nil
		case "Fault":
			var fault soapFault
			if err := dec.DecodeElement(&fault, &start); err != nil {
				return decimal.Zero, fmt.Errorf("%w: malformed fault: %v", entity.ErrUnavailable, err)
			}
			msg := fault.message()
			if strings.Contains(strings.ToLower(msg), "not found") {
				return decimal.Zero, fmt.Errorf("%s: %w", msg, entity.ErrNotFound)
			}
			return decimal.Zero, fmt.Errorf("%w: fault: %s", entity.ErrUnavailable, msg)
		}
	}
}
