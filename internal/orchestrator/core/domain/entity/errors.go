package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest marks an inbound payload that could not be parsed or
	// lacks a required field. Surfaced to callers as a client error.
	ErrMalformedRequest = errors.New("malformed order request")

	// ErrUnavailable is returned by downstream adapters for any transport
	// level failure: timeouts, refused connections, unexpected status codes
	// and undecodable responses.
	ErrUnavailable = errors.New("downstream service unavailable")

	// ErrNotFound is returned by the catalog adapter for an unknown book.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRequest is returned when a request with the same
	// idempotency key is still being placed.
	ErrDuplicateRequest = errors.New("duplicate request in flight")
)

// Stage names the workflow step a DownstreamFailure originated from.
type Stage string

const (
	StagePricing       Stage = "pricing"
	StageOrderCreation Stage = "order-creation"
	StagePayment       Stage = "payment"
	StageShipping      Stage = "shipping"
)

// DownstreamFailure reports that a required downstream call failed and the
// workflow was aborted at Stage. Item is set for pricing failures only.
type DownstreamFailure struct {
	Stage Stage
	Item  string
	Err   error
}

func (e *DownstreamFailure) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("%s failed for item %s: %v", e.Stage, e.Item, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *DownstreamFailure) Unwrap() error { return e.Err }
