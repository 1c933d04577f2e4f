package model

import "testing"

func TestDataContext_Lookup_precedence(t *testing.T) {
	dc := NewDataContext()
	dc.SetAppState("user", "app")
	dc.AddJSONSource("user", "json")
	dc.AddQueryResult("user", "query")

	v, typ, ok := dc.Lookup("user")
	if !ok {
		t.Fatal("Lookup(user) not found")
	}
	if v != "query" || typ != SourceQueryResult {
		t.Errorf("Lookup(user) = (%v, %s), want (query, QUERY_RESULT)", v, typ)
	}

	dc.AddScreenQueryResult("user", "screen")
	if _, typ, _ := dc.Lookup("user"); typ != SourceScreenQueryResult {
		t.Errorf("source type = %s, want SCREEN_QUERY_RESULT", typ)
	}

	dc.SetLocalVariable("user", "local")
	if v, typ, _ := dc.Lookup("user"); v != "local" || typ != SourceLocalVar {
		t.Errorf("Lookup(user) = (%v, %s), want (local, LOCAL_VAR)", v, typ)
	}
}

func TestDataContext_Lookup_missing(t *testing.T) {
	dc := NewDataContext()
	if _, _, ok := dc.Lookup("nope"); ok {
		t.Error("Lookup(nope) found, want missing")
	}

	var nilCtx *DataContext
	if _, _, ok := nilCtx.Lookup("nope"); ok {
		t.Error("nil context Lookup found, want missing")
	}
}

func TestDataContext_zeroValueWrites(t *testing.T) {
	var dc DataContext
	dc.AddJSONSource("greeting", "Hello")
	if v, typ, ok := dc.Lookup("greeting"); !ok || v != "Hello" || typ != SourceJSONFile {
		t.Errorf("Lookup(greeting) = (%v, %s, %v)", v, typ, ok)
	}
}

func TestDataContext_AddJSONSourceRaw(t *testing.T) {
	dc := NewDataContext()
	if err := dc.AddJSONSourceRaw("q", []byte(`{"count": 5}`)); err != nil {
		t.Fatalf("AddJSONSourceRaw: %v", err)
	}
	m, ok := dc.JSONSources["q"].(map[string]any)
	if !ok {
		t.Fatalf("JSONSources[q] type = %T, want map[string]any", dc.JSONSources["q"])
	}
	if m["count"] != float64(5) {
		t.Errorf("count = %v, want 5", m["count"])
	}

	if err := dc.AddJSONSourceRaw("bad", []byte(`{`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestDataContext_Clear(t *testing.T) {
	dc := NewDataContext()
	dc.AddJSONSource("a", 1)
	dc.SetAppState("b", 2)
	dc.SetLocalVariable("c", 3)
	if dc.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", dc.Size())
	}

	dc.Clear()
	if dc.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", dc.Size())
	}
	dc.AddQueryResult("d", 4)
	if dc.Size() != 1 {
		t.Errorf("Size() after re-add = %d, want 1", dc.Size())
	}
}

func TestDataContext_WithLocalVariable(t *testing.T) {
	dc := NewDataContext()
	dc.AddJSONSource("list", []any{"a", "b"})
	dc.SetLocalVariable("outer", 1)

	child := dc.WithLocalVariable("i", 2)

	if _, _, ok := dc.Lookup("i"); ok {
		t.Error("parent context gained local variable i")
	}
	if v, _, ok := child.Lookup("i"); !ok || v != 2 {
		t.Errorf("child Lookup(i) = %v, %v", v, ok)
	}
	if v, _, ok := child.Lookup("outer"); !ok || v != 1 {
		t.Errorf("child Lookup(outer) = %v, %v", v, ok)
	}
	if _, _, ok := child.Lookup("list"); !ok {
		t.Error("child lost json source list")
	}
}
