// Package callcontext stores the per-call business context that shapes the
// agent's instructions, and resolves it when the media stream starts.
package callcontext

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("call context not found")
	ErrInvalidToken = errors.New("invalid call context token")
	ErrTokenExpired = errors.New("call context token expired")
)

// DefaultTTL is how long a stored context stays retrievable.
const DefaultTTL = time.Hour

// CallContext is the business data supplied when a call is created.
// Any field may be empty. Once loaded into a session it is never mutated.
type CallContext struct {
	CustomerName      string `json:"customerName,omitempty"`
	VehicleName       string `json:"vehicleName,omitempty"`
	RentalStartDate   string `json:"rentalStartDate,omitempty"`
	RentalDays        string `json:"rentalDays,omitempty"`
	State             string `json:"state,omitempty"`
	DriverLicense     string `json:"driverLicense,omitempty"`
	InsuranceProvider string `json:"insuranceProvider,omitempty"`
	PolicyNumber      string `json:"policyNumber,omitempty"`
}

// IsZero reports whether no field is set.
func (c CallContext) IsZero() bool {
	return c == CallContext{}
}

// Store persists call contexts keyed by call id or by an issued correlation key.
//
//go:generate go run go.uber.org/mock/mockgen@latest -source=callcontext.go -destination=mocks_test.go -package=callcontext
type Store interface {
	// Set stores the context under key for ttl.
	Set(ctx context.Context, key string, cc CallContext, ttl time.Duration) error
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (CallContext, error)
	// Delete is a no-op for unknown keys.
	Delete(ctx context.Context, key string) error
	// Issue stores the context under a fresh opaque key and returns it.
	Issue(ctx context.Context, cc CallContext, ttl time.Duration) (string, error)
}
