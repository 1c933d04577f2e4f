// Package style indexes a microapp's style registry by code.
package style

import "github.com/pitabwire/sdui/model"

// Registry answers style lookups by code. Indexes are built once in
// NewRegistry; when a code repeats, the first entry wins. A Registry is never
// mutated after construction and is safe for concurrent use.
type Registry struct {
	source    *model.AllStyles
	text      map[string]model.TextStyle
	color     map[string]model.ColorStyle
	alignment map[string]model.AlignmentStyle
	padding   map[string]model.PaddingStyle
	round     map[string]model.RoundStyle
}

// NewRegistry builds a Registry over styles. Nil styles yield an empty registry.
func NewRegistry(styles *model.AllStyles) *Registry {
	if styles == nil {
		styles = &model.AllStyles{}
	}
	return &Registry{
		source:    styles,
		text:      index(styles.TextStyles, func(s model.TextStyle) string { return s.Code }),
		color:     index(styles.ColorStyles, func(s model.ColorStyle) string { return s.Code }),
		alignment: index(styles.AlignmentStyles, func(s model.AlignmentStyle) string { return s.Code }),
		padding:   index(styles.PaddingStyles, func(s model.PaddingStyle) string { return s.Code }),
		round:     index(styles.RoundStyles, func(s model.RoundStyle) string { return s.Code }),
	}
}

func index[T any](items []T, code func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, it := range items {
		if _, ok := out[code(it)]; !ok {
			out[code(it)] = it
		}
	}
	return out
}

// Styles returns the style set the registry was built from.
func (r *Registry) Styles() *model.AllStyles {
	if r == nil {
		return nil
	}
	return r.source
}

// Text returns the text style with the given code.
func (r *Registry) Text(code string) (model.TextStyle, bool) {
	if r == nil || code == "" {
		return model.TextStyle{}, false
	}
	ts, ok := r.text[code]
	return ts, ok
}

// Color returns the colour style with the given code.
func (r *Registry) Color(code string) (model.ColorStyle, bool) {
	if r == nil || code == "" {
		return model.ColorStyle{}, false
	}
	cs, ok := r.color[code]
	return cs, ok
}

// Alignment returns the alignment style with the given code.
func (r *Registry) Alignment(code string) (model.AlignmentStyle, bool) {
	if r == nil || code == "" {
		return model.AlignmentStyle{}, false
	}
	as, ok := r.alignment[code]
	return as, ok
}

// Padding returns the padding style with the given code.
func (r *Registry) Padding(code string) (model.PaddingStyle, bool) {
	if r == nil || code == "" {
		return model.PaddingStyle{}, false
	}
	ps, ok := r.padding[code]
	return ps, ok
}

// Round returns the round style with the given code.
func (r *Registry) Round(code string) (model.RoundStyle, bool) {
	if r == nil || code == "" {
		return model.RoundStyle{}, false
	}
	rs, ok := r.round[code]
	return rs, ok
}

// Font resolves a text style code to a font, or nil when unknown.
func (r *Registry) Font(code string) *model.FontStyle {
	ts, ok := r.Text(code)
	if !ok {
		return nil
	}
	return &model.FontStyle{Family: ts.FontFamily, Size: ts.FontSize, Weight: ts.FontWeight}
}

// ColorValue resolves a colour style code, or nil when unknown.
func (r *Registry) ColorValue(code string) *model.ColorValue {
	cs, ok := r.Color(code)
	if !ok {
		return nil
	}
	return &model.ColorValue{Light: cs.Light, Dark: cs.Dark}
}

// PaddingValue resolves a padding style code, or nil when unknown.
func (r *Registry) PaddingValue(code string) *model.Padding {
	ps, ok := r.Padding(code)
	if !ok {
		return nil
	}
	return &model.Padding{Left: ps.Left, Top: ps.Top, Right: ps.Right, Bottom: ps.Bottom}
}

// Radius resolves a round style code, or nil when unknown.
func (r *Registry) Radius(code string) *int {
	rs, ok := r.Round(code)
	if !ok {
		return nil
	}
	radius := rs.Radius
	return &radius
}
