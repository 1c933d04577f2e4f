package model

import (
	"encoding/json"
	"fmt"
)

// DataContext is the set of named data sources available to one binding pass.
// Sources are added by a single writer before binding runs and the context is
// cleared between sessions. It is not safe for concurrent writes.
type DataContext struct {
	JSONSources        map[string]any `json:"json_sources,omitempty"`
	QueryResults       map[string]any `json:"query_results,omitempty"`
	ScreenQueryResults map[string]any `json:"screen_query_results,omitempty"`
	AppState           map[string]any `json:"app_state,omitempty"`
	LocalVariables     map[string]any `json:"local_variables,omitempty"`
}

// NewDataContext returns an empty context with every map allocated.
func NewDataContext() *DataContext {
	dc := &DataContext{}
	dc.ensure()
	return dc
}

func (dc *DataContext) ensure() {
	if dc.JSONSources == nil {
		dc.JSONSources = make(map[string]any)
	}
	if dc.QueryResults == nil {
		dc.QueryResults = make(map[string]any)
	}
	if dc.ScreenQueryResults == nil {
		dc.ScreenQueryResults = make(map[string]any)
	}
	if dc.AppState == nil {
		dc.AppState = make(map[string]any)
	}
	if dc.LocalVariables == nil {
		dc.LocalVariables = make(map[string]any)
	}
}

// AddJSONSource registers a decoded JSON asset under name.
func (dc *DataContext) AddJSONSource(name string, value any) {
	dc.ensure()
	dc.JSONSources[name] = value
}

// AddJSONSourceRaw decodes raw JSON and registers it under name.
func (dc *DataContext) AddJSONSourceRaw(name string, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("json source %q: %w", name, err)
	}
	dc.AddJSONSource(name, v)
	return nil
}

// AddQueryResult registers the result of a query.
func (dc *DataContext) AddQueryResult(code string, value any) {
	dc.ensure()
	dc.QueryResults[code] = value
}

// AddScreenQueryResult registers the result of a screen-bound query.
func (dc *DataContext) AddScreenQueryResult(code string, value any) {
	dc.ensure()
	dc.ScreenQueryResults[code] = value
}

// SetAppState sets an application state value.
func (dc *DataContext) SetAppState(name string, value any) {
	dc.ensure()
	dc.AppState[name] = value
}

// SetLocalVariable sets a local variable such as a loop index.
func (dc *DataContext) SetLocalVariable(name string, value any) {
	dc.ensure()
	dc.LocalVariables[name] = value
}

// Clear drops every source.
func (dc *DataContext) Clear() {
	dc.JSONSources = nil
	dc.QueryResults = nil
	dc.ScreenQueryResults = nil
	dc.AppState = nil
	dc.LocalVariables = nil
	dc.ensure()
}

// Lookup finds a source by name. Maps are searched in the order local
// variables, screen query results, query results, JSON sources, app state;
// the first map holding the name wins.
func (dc *DataContext) Lookup(name string) (any, SourceType, bool) {
	if dc == nil {
		return nil, "", false
	}
	for _, src := range []struct {
		typ SourceType
		m   map[string]any
	}{
		{SourceLocalVar, dc.LocalVariables},
		{SourceScreenQueryResult, dc.ScreenQueryResults},
		{SourceQueryResult, dc.QueryResults},
		{SourceJSONFile, dc.JSONSources},
		{SourceAppState, dc.AppState},
	} {
		if v, ok := src.m[name]; ok {
			return v, src.typ, true
		}
	}
	return nil, "", false
}

// WithLocalVariable returns a copy of the context with one extra local
// variable. The receiver is left untouched; the other maps are shared.
func (dc *DataContext) WithLocalVariable(name string, value any) *DataContext {
	out := &DataContext{}
	if dc != nil {
		out.JSONSources = dc.JSONSources
		out.QueryResults = dc.QueryResults
		out.ScreenQueryResults = dc.ScreenQueryResults
		out.AppState = dc.AppState
	}
	out.ensure()
	if dc != nil {
		for k, v := range dc.LocalVariables {
			out.LocalVariables[k] = v
		}
	}
	out.LocalVariables[name] = value
	return out
}

// Size returns the total number of sources across all maps.
func (dc *DataContext) Size() int {
	if dc == nil {
		return 0
	}
	return len(dc.JSONSources) + len(dc.QueryResults) + len(dc.ScreenQueryResults) +
		len(dc.AppState) + len(dc.LocalVariables)
}
