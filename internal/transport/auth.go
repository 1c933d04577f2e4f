package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/model"
)

// JWTAuthenticator returns middleware that verifies HMAC-signed bearer
// tokens and records the caller in the RequestContext. When cfg.WriteRole is
// set the token's roles claim must contain it. A disabled config lets every
// request through.
func JWTAuthenticator(cfg config.IdentityConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	secret := []byte(cfg.Secret)
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(cfg.Algorithms),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				WriteError(w, r, model.NewUnauthorizedError("Missing authorization header"))
				return
			}
			tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				WriteError(w, r, model.NewUnauthorizedError("Invalid authorization header format"))
				return
			}

			token, err := jwt.Parse(tokenStr, keyFunc, opts...)
			if err != nil {
				WriteError(w, r, model.NewUnauthorizedError(classifyJWTError(err)))
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				WriteError(w, r, model.NewUnauthorizedError("Invalid token"))
				return
			}

			rctx := callerContext(r, claims)
			if err := rctx.Validate(); err != nil {
				WriteError(w, r, model.NewUnauthorizedError("Token has no subject"))
				return
			}
			if cfg.WriteRole != "" && !rctx.HasRole(cfg.WriteRole) {
				WriteError(w, r, model.NewForbiddenError(fmt.Sprintf("role %q is required", cfg.WriteRole)))
				return
			}

			ctx := model.WithRequestContext(r.Context(), rctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerContext derives a RequestContext from verified claims, keeping the
// request and trace IDs already on the request.
func callerContext(r *http.Request, claims jwt.MapClaims) *model.RequestContext {
	rctx := &model.RequestContext{}
	if prev := model.RequestContextFrom(r.Context()); prev != nil {
		rctx.RequestID = prev.RequestID
		rctx.TraceID = prev.TraceID
	}
	rctx.SubjectID, _ = claims.GetSubject()
	rctx.Roles = claimStringSlice(claims, "roles")
	rctx.Claims = map[string]any(claims)
	return rctx
}

func classifyJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "Token is missing a required claim"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "Invalid token audience"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "Disallowed signing algorithm"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	default:
		return "Invalid token"
	}
}

func claimStringSlice(claims map[string]any, key string) []string {
	switch raw := claims[key].(type) {
	case []any:
		result := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return raw
	case string:
		return strings.Fields(raw)
	}
	return nil
}
