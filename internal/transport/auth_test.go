package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/model"
)

const testSecret = "test-secret"

func testIdentity() config.IdentityConfig {
	return config.IdentityConfig{
		Enabled:    true,
		Issuer:     "https://auth.example.com",
		Audience:   "sdui",
		Secret:     testSecret,
		Algorithms: []string{"HS256"},
		WriteRole:  "microapp:write",
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-1",
		"iss":   "https://auth.example.com",
		"aud":   "sdui",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"roles": []string{"microapp:write"},
	}
}

func withClaims(mutate func(jwt.MapClaims)) jwt.MapClaims {
	c := validClaims()
	mutate(c)
	return c
}

func TestJWTAuthenticator(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "valid",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Missing authorization header",
		},
		{
			name:       "not bearer",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid authorization header format",
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", validClaims()),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid token signature",
		},
		{
			name: "expired",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, withClaims(func(c jwt.MapClaims) {
				c["exp"] = time.Now().Add(-time.Hour).Unix()
			})),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Token expired",
		},
		{
			name: "wrong issuer",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, withClaims(func(c jwt.MapClaims) {
				c["iss"] = "https://evil.example.com"
			})),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid token issuer",
		},
		{
			name: "wrong audience",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, withClaims(func(c jwt.MapClaims) {
				c["aud"] = "other"
			})),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid token audience",
		},
		{
			name: "no subject",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, withClaims(func(c jwt.MapClaims) {
				delete(c, "sub")
			})),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Token has no subject",
		},
		{
			name: "missing role",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, withClaims(func(c jwt.MapClaims) {
				c["roles"] = []string{"microapp:read"}
			})),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "disallowed algorithm",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, validClaims()),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.RequestContext
			handler := JWTAuthenticator(testIdentity())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = model.RequestContextFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/microapps", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if got == nil || got.SubjectID != "user-1" || !got.HasRole("microapp:write") {
					t.Errorf("RequestContext = %+v", got)
				}
				return
			}
			if tt.wantMsg != "" {
				var body struct {
					Error model.ErrorEnvelope `json:"error"`
				}
				json.NewDecoder(w.Body).Decode(&body)
				if body.Error.Message != tt.wantMsg {
					t.Errorf("message = %q, want %q", body.Error.Message, tt.wantMsg)
				}
			}
		})
	}
}

func TestJWTAuthenticator_keepsRequestID(t *testing.T) {
	var got *model.RequestContext
	handler := RequestID(JWTAuthenticator(testIdentity())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = model.RequestContextFrom(r.Context())
	})))

	req := httptest.NewRequest(http.MethodPost, "/microapps", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()))
	req.Header.Set(RequestIDHeader, "req-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.RequestID != "req-7" || got.SubjectID != "user-1" {
		t.Errorf("RequestContext = %+v", got)
	}
}

func TestJWTAuthenticator_disabled(t *testing.T) {
	called := false
	handler := JWTAuthenticator(config.IdentityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/microapps/x", nil))
	if !called {
		t.Error("disabled authenticator should pass requests through")
	}
}

func TestClaimStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"json array", []any{"a", "b", 3}, 2},
		{"string slice", []string{"a"}, 1},
		{"space separated", "a b c", 3},
		{"missing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := claimStringSlice(map[string]any{"roles": tt.value}, "roles")
			if len(got) != tt.want {
				t.Errorf("claimStringSlice() = %v, want %d entries", got, tt.want)
			}
		})
	}
}
