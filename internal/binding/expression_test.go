package binding

import (
	"testing"

	"github.com/pitabwire/sdui/model"
)

func TestParseBindings(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantSource string
		wantPath   string
		wantExpr   string
		wantDef    *string
	}{
		{"simple", "${greeting}", "greeting", "", "${greeting}", nil},
		{"dotted", "${user.name}", "user", "name", "${user.name}", nil},
		{"indexed", "${list[1].name}", "list", "[1].name", "${list[1].name}", nil},
		{"index only", "${list[0]}", "list", "[0]", "${list[0]}", nil},
		{"nested remainder", "${q.items[2].tags[0]}", "q", "items[2].tags[0]", "${q.items[2].tags[0]}", nil},
		{"default", "${user.name|Guest}", "user", "name", "${user.name|Guest}", strPtr("Guest")},
		{"empty default", "${user|}", "user", "", "${user|}", strPtr("")},
		{"embedded", "Hi ${user.name}!", "user", "name", "${user.name}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBindings(tt.text)
			if len(got) != 1 {
				t.Fatalf("ParseBindings(%q) = %d bindings, want 1", tt.text, len(got))
			}
			b := got[0]
			if b.SourceName != tt.wantSource {
				t.Errorf("SourceName = %q, want %q", b.SourceName, tt.wantSource)
			}
			if b.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", b.Path, tt.wantPath)
			}
			if b.Expression != tt.wantExpr {
				t.Errorf("Expression = %q, want %q", b.Expression, tt.wantExpr)
			}
			if b.SourceType != model.SourceJSONFile {
				t.Errorf("SourceType = %s, want JSON_FILE", b.SourceType)
			}
			switch {
			case tt.wantDef == nil && b.DefaultValue != nil:
				t.Errorf("DefaultValue = %q, want nil", *b.DefaultValue)
			case tt.wantDef != nil && (b.DefaultValue == nil || *b.DefaultValue != *tt.wantDef):
				t.Errorf("DefaultValue = %v, want %q", b.DefaultValue, *tt.wantDef)
			}
		})
	}
}

func TestParseBindings_multipleAndNone(t *testing.T) {
	got := ParseBindings("${a} and ${b.c} and ${a}")
	if len(got) != 3 {
		t.Fatalf("bindings = %d, want 3", len(got))
	}
	if got[1].SourceName != "b" || got[2].Expression != "${a}" {
		t.Errorf("bindings = %+v", got)
	}

	for _, text := range []string{"", "plain", "$greeting", "${", "${}", "${1abc}"} {
		if b := ParseBindings(text); len(b) != 0 {
			t.Errorf("ParseBindings(%q) = %+v, want none", text, b)
		}
	}
}

func TestSubstitute(t *testing.T) {
	dc := model.NewDataContext()
	dc.AddJSONSource("greeting", "Hello")
	dc.AddJSONSource("user", map[string]any{"name": "Ada", "age": float64(36)})
	dc.AddQueryResult("cart", map[string]any{"total": 12.5})

	tests := []struct {
		name         string
		text         string
		want         string
		wantResolved int
		wantTotal    int
	}{
		{"whole value", "${greeting}", "Hello", 1, 1},
		{"embedded", "${greeting}, ${user.name}!", "Hello, Ada!", 2, 2},
		{"integral float", "${user.age}", "36", 1, 1},
		{"fraction", "${cart.total}", "12.5", 1, 1},
		{"object as json", "${user}", `{"age":36,"name":"Ada"}`, 1, 1},
		{"missing source stays literal", "${nobody.name}", "${nobody.name}", 0, 1},
		{"missing path stays literal", "${user.email}", "${user.email}", 0, 1},
		{"default used", "${user.email|n/a}", "n/a", 1, 1},
		{"partial", "${greeting} ${nobody}", "Hello ${nobody}", 1, 2},
		{"no macros", "static", "static", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Substitute(tt.text, dc)
			if sub.Text != tt.want {
				t.Errorf("Text = %q, want %q", sub.Text, tt.want)
			}
			if sub.Resolved != tt.wantResolved || sub.Total != tt.wantTotal {
				t.Errorf("Resolved/Total = %d/%d, want %d/%d", sub.Resolved, sub.Total, tt.wantResolved, tt.wantTotal)
			}
		})
	}
}

func TestSubstitute_recordsSourceType(t *testing.T) {
	dc := model.NewDataContext()
	dc.AddQueryResult("profile", map[string]any{"name": "Ada"})
	dc.SetAppState("theme", "dark")

	sub := Substitute("${profile.name} ${theme}", dc)
	if sub.Bindings[0].SourceType != model.SourceQueryResult {
		t.Errorf("bindings[0].SourceType = %s, want QUERY_RESULT", sub.Bindings[0].SourceType)
	}
	if sub.Bindings[1].SourceType != model.SourceAppState {
		t.Errorf("bindings[1].SourceType = %s, want APP_STATE", sub.Bindings[1].SourceType)
	}
}

func TestSubstitute_nilContext(t *testing.T) {
	sub := Substitute("${greeting|hi}", nil)
	if sub.Text != "hi" {
		t.Errorf("Text = %q, want hi", sub.Text)
	}
}

func TestSubstitute_valuesAreNotRescanned(t *testing.T) {
	dc := model.NewDataContext()
	dc.AddJSONSource("a", "${b}")
	dc.AddJSONSource("b", "X")

	tests := []struct {
		text string
		want string
	}{
		{"${a} ${b}", "${b} X"},
		{"${b} ${a}", "X ${b}"},
		{"${a} ${missing} ${b}", "${b} ${missing} X"},
		{"${missing} ${b} ${missing}", "${missing} X ${missing}"},
	}
	for _, tt := range tests {
		if got := Substitute(tt.text, dc).Text; got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func strPtr(s string) *string { return &s }
