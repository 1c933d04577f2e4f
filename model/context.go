package model

import (
	"context"
	"errors"
	"slices"
)

// RequestContext carries the caller identity and tracing information of one
// HTTP request. It is immutable after construction and safe for concurrent
// reads.
type RequestContext struct {
	SubjectID string
	Roles     []string
	Claims    map[string]any
	RequestID string
	TraceID   string
}

// ErrNoSubject is returned by Validate for an anonymous caller.
var ErrNoSubject = errors.New("request context has no subject")

// Validate reports whether the caller is identified.
func (rc *RequestContext) Validate() error {
	if rc.SubjectID == "" {
		return ErrNoSubject
	}
	return nil
}

// HasRole reports whether role was granted to the caller.
func (rc *RequestContext) HasRole(role string) bool {
	return slices.Contains(rc.Roles, role)
}

// Claim returns a raw token claim, or nil.
func (rc *RequestContext) Claim(key string) any {
	return rc.Claims[key]
}

type contextKey struct{}

// WithRequestContext returns ctx carrying rctx.
func WithRequestContext(ctx context.Context, rctx *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rctx)
}

// RequestContextFrom returns the request's RequestContext, or nil outside a
// request.
func RequestContextFrom(ctx context.Context) *RequestContext {
	rctx, _ := ctx.Value(contextKey{}).(*RequestContext)
	return rctx
}
