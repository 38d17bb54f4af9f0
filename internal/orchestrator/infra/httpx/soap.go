package httpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

const (
	soapEnvNamespace   = "http://schemas.xmlsoap.org/soap/envelope/"
	orchestrationNS    = "http://bpel.globalbooks.com/"
	maxSOAPRequestSize = 1 << 20
)

// Inbound elements carry no namespace in their tags so they match by local
// name whatever prefix the caller chose.
type soapRequestEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		PlaceOrder *soapPlaceOrder `xml:"placeOrder"`
	} `xml:"Body"`
}

type soapPlaceOrder struct {
	CustomerID      string          `xml:"customerId"`
	OrderItems      *soapOrderItems `xml:"orderItems"`
	ShippingAddress string          `xml:"shippingAddress"`
	PaymentMethod   string          `xml:"paymentMethod"`
}

type soapOrderItems struct {
	Items []soapOrderItem `xml:"item"`
}

type soapOrderItem struct {
	BookID   string `xml:"bookId"`
	Quantity string `xml:"quantity"`
}

type soapResponseEnvelope struct {
	XMLName xml.Name         `xml:"soapenv:Envelope"`
	EnvNS   string           `xml:"xmlns:soapenv,attr"`
	OrchNS  string           `xml:"xmlns:orch,attr,omitempty"`
	Body    soapResponseBody `xml:"soapenv:Body"`
}

type soapResponseBody struct {
	Response *soapPlaceOrderResponse `xml:"orch:placeOrderResponse,omitempty"`
	Fault    *soapFault              `xml:"soapenv:Fault,omitempty"`
}

type soapPlaceOrderResponse struct {
	OrderID        string `xml:"orch:orderId"`
	TotalAmount    string `xml:"orch:totalAmount"`
	Status         string `xml:"orch:status"`
	TrackingNumber string `xml:"orch:trackingNumber"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// PlaceOrderSOAP is the SOAP entry point. It produces the same OrderRequest
// as the REST entry for equivalent input.
func (h *Handler) PlaceOrderSOAP(w http.ResponseWriter, r *http.Request) {
	order, err := decodeSOAPOrder(io.LimitReader(r.Body, maxSOAPRequestSize))
	if err != nil {
		writeSOAPFault(w, http.StatusBadRequest, "soapenv:Client", err.Error())
		return
	}

	result, err := h.submit(w, r, order)
	if err != nil {
		switch status := statusFor(err); status {
		case http.StatusInternalServerError:
			w.WriteHeader(status)
		default:
			writeSOAPFault(w, status, "soapenv:Client", err.Error())
		}
		return
	}

	writeSOAP(w, http.StatusOK, soapResponseBody{Response: &soapPlaceOrderResponse{
		OrderID:        result.OrderID,
		TotalAmount:    result.TotalAmount.String(),
		Status:         string(result.Status),
		TrackingNumber: result.TrackingNumber,
	}})
}

func decodeSOAPOrder(r io.Reader) (entity.OrderRequest, error) {
	var env soapRequestEnvelope
	if err := xml.NewDecoder(r).Decode(&env); err != nil {
		return entity.OrderRequest{}, fmt.Errorf("%w: unreadable envelope: %v", entity.ErrMalformedRequest, err)
	}
	po := env.Body.PlaceOrder
	if po == nil {
		return entity.OrderRequest{}, fmt.Errorf("%w: envelope has no placeOrder element", entity.ErrMalformedRequest)
	}

	var items []entity.OrderItem
	if po.OrderItems != nil {
		items = make([]entity.OrderItem, len(po.OrderItems.Items))
		for i, it := range po.OrderItems.Items {
			qty, err := strconv.Atoi(strings.TrimSpace(it.Quantity))
			if err != nil {
				return entity.OrderRequest{}, fmt.Errorf("%w: item %d quantity %q is not a number", entity.ErrMalformedRequest, i, it.Quantity)
			}
			items[i] = entity.OrderItem{BookID: strings.TrimSpace(it.BookID), Quantity: qty}
		}
	}

	return entity.NewOrderRequest(
		strings.TrimSpace(po.CustomerID),
		items,
		strings.TrimSpace(po.ShippingAddress),
		strings.TrimSpace(po.PaymentMethod),
	)
}

func writeSOAPFault(w http.ResponseWriter, status int, code, msg string) {
	writeSOAP(w, status, soapResponseBody{Fault: &soapFault{Code: code, String: msg}})
}

func writeSOAP(w http.ResponseWriter, status int, body soapResponseBody) {
	env := soapResponseEnvelope{EnvNS: soapEnvNamespace, Body: body}
	if body.Response != nil {
		env.OrchNS = orchestrationNS
	}
	out, err := xml.Marshal(env)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	_, _ = w.Write(out)
}
