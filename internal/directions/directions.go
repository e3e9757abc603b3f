// Package directions fetches driving routes from an external provider.
//
// Providers never return bare errors: every lookup yields a Result tagged
// with a Kind so callers can tell "no such route" from "provider down".
package directions

import (
	"context"
	"errors"
	"fmt"

	"github.com/atharv3903/tripcorridor/internal/model"
)

// Route is a provider-computed path between two endpoints.
type Route struct {
	Polyline        []model.LatLng
	DistanceMeters  int
	DurationSeconds int
	Bounds          model.Bounds
}

type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindUnavailable
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrNotFound    = errors.New("directions: no route found")
	ErrUnavailable = errors.New("directions: provider unavailable")
	ErrRateLimited = errors.New("directions: provider rate limited")
)

// Error carries the failure kind and the underlying cause.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return "directions: " + e.Kind.String()
	}
	return "directions: " + e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// Result is the tagged outcome of one lookup.
type Result struct {
	Kind  Kind
	Route Route
	Err   error
}

func Success(r Route) Result { return Result{Kind: KindOK, Route: r} }

func Failure(kind Kind, cause error) Result {
	return Result{Kind: kind, Err: &Error{Kind: kind, Cause: cause}}
}

func (r Result) OK() bool { return r.Kind == KindOK }

// Provider resolves a route between two free-text endpoints.
type Provider interface {
	Directions(ctx context.Context, origin, destination string) Result
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, origin, destination string) Result

func (f ProviderFunc) Directions(ctx context.Context, origin, destination string) Result {
	return f(ctx, origin, destination)
}
