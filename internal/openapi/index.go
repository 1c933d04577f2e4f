// Package openapi loads OpenAPI specifications and checks microapp queries
// against the operations they describe.
package openapi

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pitabwire/sdui/model"
)

// SpecSource describes an OpenAPI spec file to load.
type SpecSource struct {
	ServiceID string `yaml:"service_id"`
	BaseURL   string `yaml:"base_url"`
	SpecPath  string `yaml:"spec_path"`
}

// IndexedOperation holds a resolved OpenAPI operation with its context.
type IndexedOperation struct {
	ServiceID    string
	OperationID  string
	Method       string
	PathTemplate string
	Parameters   []*openapi3.Parameter
	BaseURL      string

	segments []string
}

// ValidationError describes one problem found with a query.
type ValidationError struct {
	Field   string
	Message string
}

// Index holds every operation of the loaded specs, looked up by HTTP method
// and concrete path.
type Index struct {
	byMethod map[string][]IndexedOperation
	services map[string]string // serviceID -> base URL
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byMethod: make(map[string][]IndexedOperation),
		services: make(map[string]string),
	}
}

// Load parses the spec files and indexes their operations.
func (idx *Index) Load(specs []SpecSource) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	for _, src := range specs {
		doc, err := loader.LoadFromFile(src.SpecPath)
		if err != nil {
			return fmt.Errorf("openapi: loading %s (%s): %w", src.ServiceID, src.SpecPath, err)
		}
		if err := idx.add(src, doc); err != nil {
			return err
		}
	}
	return nil
}

// LoadData indexes a spec held in memory.
func (idx *Index) LoadData(src SpecSource, data []byte) error {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return fmt.Errorf("openapi: parsing %s: %w", src.ServiceID, err)
	}
	return idx.add(src, doc)
}

func (idx *Index) add(src SpecSource, doc *openapi3.T) error {
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("openapi: validating %s: %w", src.ServiceID, err)
	}

	baseURL := src.BaseURL
	if baseURL == "" && len(doc.Servers) > 0 {
		baseURL = doc.Servers[0].URL
	}
	idx.services[src.ServiceID] = baseURL

	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			// Path-level parameters, then operation-level ones.
			params := make([]*openapi3.Parameter, 0)
			for _, ref := range pathItem.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}
			for _, ref := range op.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}

			method = strings.ToUpper(method)
			idx.byMethod[method] = append(idx.byMethod[method], IndexedOperation{
				ServiceID:    src.ServiceID,
				OperationID:  op.OperationID,
				Method:       method,
				PathTemplate: path,
				Parameters:   params,
				BaseURL:      baseURL,
				segments:     splitPath(path),
			})
		}
	}

	// Literal segments beat templated ones when both match.
	for m := range idx.byMethod {
		ops := idx.byMethod[m]
		sort.SliceStable(ops, func(i, j int) bool {
			return templateCount(ops[i].segments) < templateCount(ops[j].segments)
		})
	}
	return nil
}

// Len returns the number of indexed operations.
func (idx *Index) Len() int {
	n := 0
	for _, ops := range idx.byMethod {
		n += len(ops)
	}
	return n
}

// Services lists the loaded service IDs, sorted.
func (idx *Index) Services() []string {
	ids := make([]string, 0, len(idx.services))
	for id := range idx.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Find returns the operation serving method and endpoint. The endpoint may be
// an absolute URL or a path; a query string is ignored.
func (idx *Index) Find(method, endpoint string) (IndexedOperation, bool) {
	path := endpointPath(endpoint)
	segs := splitPath(path)
	for _, op := range idx.byMethod[strings.ToUpper(strings.TrimSpace(method))] {
		if matches(op.segments, segs) {
			return op, true
		}
		if base := basePath(op.BaseURL); base != "" {
			trimmed := strings.TrimPrefix(path, base)
			if trimmed != path && matches(op.segments, splitPath(trimmed)) {
				return op, true
			}
		}
	}
	return IndexedOperation{}, false
}

// ValidateQuery checks that a query names a known operation and supplies
// every required query and header parameter through its properties. Path
// parameters are expected to be part of the endpoint.
func (idx *Index) ValidateQuery(q model.Query) []ValidationError {
	if q.Endpoint == "" {
		return []ValidationError{{Field: "endpoint", Message: "endpoint is required"}}
	}
	method := q.Method
	if method == "" {
		method = "GET"
	}

	op, ok := idx.Find(method, q.Endpoint)
	if !ok {
		return []ValidationError{{
			Field:   "endpoint",
			Message: fmt.Sprintf("no operation for %s %s", strings.ToUpper(method), q.Endpoint),
		}}
	}

	supplied := map[string]bool{}
	for k := range q.Properties {
		supplied[k] = true
	}
	if u, err := url.Parse(q.Endpoint); err == nil {
		for k := range u.Query() {
			supplied[k] = true
		}
	}

	var errs []ValidationError
	for _, p := range op.Parameters {
		if !p.Required || p.In == openapi3.ParameterInPath {
			continue
		}
		if !supplied[p.Name] {
			errs = append(errs, ValidationError{
				Field:   p.Name,
				Message: fmt.Sprintf("%s parameter %s is required by %s", p.In, p.Name, op.OperationID),
			})
		}
	}
	return errs
}

func endpointPath(endpoint string) string {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return endpoint
	}
	return u.Path
}

func basePath(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func isTemplate(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func templateCount(segs []string) int {
	n := 0
	for _, s := range segs {
		if isTemplate(s) {
			n++
		}
	}
	return n
}

// matches compares a template against a concrete path. A segment that is
// itself a binding macro matches any template segment.
func matches(template, path []string) bool {
	if len(template) != len(path) {
		return false
	}
	for i, seg := range template {
		if isTemplate(seg) || strings.HasPrefix(path[i], "${") {
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}
