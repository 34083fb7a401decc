package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const credentialKey ctxKey = "credential"

// LoadCredential copies a bearer token from the Authorization header into
// the request context. It does not verify it; that is the coordinator's
// first step on every operation.
func LoadCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cred := BearerToken(r); cred != "" {
			r = r.WithContext(WithCredential(r.Context(), cred))
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) Credential {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return Credential(strings.TrimSpace(h[7:]))
}

// WithCredential returns ctx carrying cred.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialKey, cred)
}

// CredentialFrom returns the credential stored by LoadCredential, or "".
func CredentialFrom(ctx context.Context) Credential {
	c, _ := ctx.Value(credentialKey).(Credential)
	return c
}
