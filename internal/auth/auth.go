// Package auth abstracts the host-provided authorization check. The engine
// never verifies signatures itself; it asks an injected Authorizer whether
// the invocation is authorized to act as a given principal, the way a
// contract host resolves require_auth.
package auth

import "context"

// Authorizer reports whether the current invocation may act as principal.
type Authorizer interface {
	Authorized(ctx context.Context, principal string) bool
}

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller address.
// The transport layer sets this once per request after establishing the
// caller's identity.
func WithCaller(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// Caller extracts the authenticated caller address, if any.
func Caller(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(callerKey{}).(string)
	return addr, ok && addr != ""
}

// CallerAuthorizer authorizes exactly the principal the transport
// authenticated into the context. This is the production implementation:
// whoever the transport says is calling may act only as themselves.
type CallerAuthorizer struct{}

func (CallerAuthorizer) Authorized(ctx context.Context, principal string) bool {
	caller, ok := Caller(ctx)
	return ok && caller == principal
}

// AllowAll authorizes every principal. Test use only, mirroring a mocked
// host that approves all auth trees.
type AllowAll struct{}

func (AllowAll) Authorized(context.Context, string) bool { return true }
