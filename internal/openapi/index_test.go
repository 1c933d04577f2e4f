package openapi

import (
	"testing"

	"github.com/pitabwire/sdui/model"
)

func loadTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()
	err := idx.Load([]SpecSource{
		{ServiceID: "profile-svc", SpecPath: "testdata/profile-svc.yaml"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return idx
}

func TestIndex_Load(t *testing.T) {
	idx := loadTestIndex(t)
	if idx.Len() != 4 {
		t.Errorf("Len() = %d, want 4 operations", idx.Len())
	}
	if got := idx.Services(); len(got) != 1 || got[0] != "profile-svc" {
		t.Errorf("Services() = %v", got)
	}
}

func TestIndex_Load_missingFile(t *testing.T) {
	err := NewIndex().Load([]SpecSource{{ServiceID: "x", SpecPath: "testdata/nope.yaml"}})
	if err == nil {
		t.Fatal("Load() with a missing file should fail")
	}
}

func TestIndex_LoadData_invalid(t *testing.T) {
	if err := NewIndex().LoadData(SpecSource{ServiceID: "x"}, []byte("openapi: [")); err == nil {
		t.Fatal("LoadData() with broken YAML should fail")
	}
}

func TestIndex_Find(t *testing.T) {
	idx := loadTestIndex(t)

	tests := []struct {
		name     string
		method   string
		endpoint string
		wantOp   string
		wantOK   bool
	}{
		{"exact path", "GET", "/profile", "getProfile", true},
		{"lowercase method", "get", "/profile", "getProfile", true},
		{"templated segment", "GET", "/profile/42", "getProfileById", true},
		{"literal beats template", "GET", "/profile/me", "getMyProfile", true},
		{"macro segment", "PUT", "/profile/${user.id}", "updateProfile", true},
		{"absolute URL with base path", "GET", "https://profile.internal/api/v1/profile", "getProfile", true},
		{"query string ignored", "GET", "/profile?x=1", "getProfile", true},
		{"wrong method", "DELETE", "/profile", "", false},
		{"unknown path", "GET", "/orders", "", false},
		{"too deep", "GET", "/profile/42/extra", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := idx.Find(tt.method, tt.endpoint)
			if ok != tt.wantOK {
				t.Fatalf("Find(%s %s) ok = %v, want %v", tt.method, tt.endpoint, ok, tt.wantOK)
			}
			if ok && op.OperationID != tt.wantOp {
				t.Errorf("OperationID = %q, want %q", op.OperationID, tt.wantOp)
			}
		})
	}
}

func TestIndex_ValidateQuery(t *testing.T) {
	idx := loadTestIndex(t)

	tests := []struct {
		name      string
		query     model.Query
		wantField string
	}{
		{"valid", model.Query{Code: "p", Endpoint: "/profile", Method: "GET"}, ""},
		{"method defaults to GET", model.Query{Code: "p", Endpoint: "/profile"}, ""},
		{"required query param in properties", model.Query{
			Code: "p", Endpoint: "/profile/${id}", Method: "GET",
			Properties: map[string]string{"fields": "name"},
		}, ""},
		{"required query param in endpoint", model.Query{Code: "p", Endpoint: "/profile/7?fields=name", Method: "GET"}, ""},
		{"missing required query param", model.Query{Code: "p", Endpoint: "/profile/7", Method: "GET"}, "fields"},
		{"unknown operation", model.Query{Code: "p", Endpoint: "/nope", Method: "GET"}, "endpoint"},
		{"empty endpoint", model.Query{Code: "p"}, "endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := idx.ValidateQuery(tt.query)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("ValidateQuery() = %v, want none", errs)
				}
				return
			}
			if len(errs) != 1 || errs[0].Field != tt.wantField {
				t.Errorf("ValidateQuery() = %v, want one error on %q", errs, tt.wantField)
			}
		})
	}
}
