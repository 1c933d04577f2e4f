package binding

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pitabwire/sdui/model"
)

// Stats counts the macros seen and substituted by one binding pass.
type Stats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

// Unresolved returns the number of macros left as literal text.
func (s Stats) Unresolved() int { return s.Total - s.Resolved }

func (s *Stats) add(sub Substitution) {
	s.Total += sub.Total
	s.Resolved += sub.Resolved
}

// Engine substitutes macros in component trees. It never fails: a macro that
// cannot be resolved stays as literal text and is only counted.
type Engine struct {
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-binding detail and loop bound failures.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply returns a bound copy of tree. The input is not modified.
func (e *Engine) Apply(tree model.ComponentModel, dc *model.DataContext) model.ComponentModel {
	out, _ := e.ApplyWithStats(tree, dc)
	return out
}

// ApplyWithStats is Apply plus the binding counters.
func (e *Engine) ApplyWithStats(tree model.ComponentModel, dc *model.DataContext) (model.ComponentModel, Stats) {
	var stats Stats
	out := e.bindModel(tree, dc, &stats)
	e.logger.Debug("binding: pass complete",
		zap.Int("total", stats.Total), zap.Int("resolved", stats.Resolved))
	return out, stats
}

func (e *Engine) bindModel(m model.ComponentModel, dc *model.DataContext, stats *Stats) model.ComponentModel {
	if m == nil {
		return nil
	}
	out := model.CloneModel(m)

	switch n := out.(type) {
	case *model.LayoutModel:
		e.bindModifier(&n.Modifier, dc, stats)
		if n.LayoutKind.IsLoop() {
			// Children are the iteration template and stay unbound; only the
			// bound is resolved here.
			n.ResolvedMaxForIndex = e.resolveMaxForIndex(n.MaxForIndex, dc, stats)
			return n
		}
		e.bindVisibility(&n.ModelBase, dc, stats)
		for i, child := range n.Children {
			n.Children[i] = e.bindModel(child, dc, stats)
		}
	case *model.LabelModel:
		e.bindCommon(&n.ModelBase, dc, stats)
		e.bindText(&n.TextAppearance, dc, stats)
		n.Text = e.bindString(n.Text, dc, stats)
	case *model.ButtonModel:
		e.bindCommon(&n.ModelBase, dc, stats)
		e.bindText(&n.TextAppearance, dc, stats)
		n.Text = e.bindString(n.Text, dc, stats)
	case *model.ImageModel:
		e.bindCommon(&n.ModelBase, dc, stats)
		n.URL = e.bindString(n.URL, dc, stats)
	case *model.AppBarModel:
		e.bindCommon(&n.ModelBase, dc, stats)
		e.bindText(&n.TextAppearance, dc, stats)
		n.Title = e.bindString(n.Title, dc, stats)
	case *model.InputModel:
		e.bindCommon(&n.ModelBase, dc, stats)
		e.bindText(&n.TextAppearance, dc, stats)
		n.Hint = e.bindString(n.Hint, dc, stats)
		n.Value = e.bindString(n.Value, dc, stats)
	default:
		e.logger.Debug("binding: unknown model kind left unbound", zap.String("kind", string(m.Kind())))
	}
	return out
}

func (e *Engine) bindCommon(b *model.ModelBase, dc *model.DataContext, stats *Stats) {
	e.bindModifier(&b.Modifier, dc, stats)
	e.bindVisibility(b, dc, stats)
}

func (e *Engine) bindModifier(m *model.Modifier, dc *model.DataContext, stats *Stats) {
	m.PaddingStyleCode = e.bindString(m.PaddingStyleCode, dc, stats)
	m.RoundStyleCode = e.bindString(m.RoundStyleCode, dc, stats)
	m.BackgroundColorStyleCode = e.bindString(m.BackgroundColorStyleCode, dc, stats)
	m.AlignmentStyleCode = e.bindString(m.AlignmentStyleCode, dc, stats)
}

func (e *Engine) bindText(t *model.TextAppearance, dc *model.DataContext, stats *Stats) {
	t.TextStyleCode = e.bindString(t.TextStyleCode, dc, stats)
	t.ColorStyleCode = e.bindString(t.ColorStyleCode, dc, stats)
}

// bindVisibility resolves the visibility code and hides the node when it
// evaluates to false, hidden or gone.
func (e *Engine) bindVisibility(b *model.ModelBase, dc *model.DataContext, stats *Stats) {
	if b.VisibilityCode == "" {
		return
	}
	b.VisibilityCode = e.bindString(b.VisibilityCode, dc, stats)
	if IsHidden(b.VisibilityCode) {
		b.Visible = false
	}
}

// IsHidden reports whether a resolved visibility value hides a node.
func IsHidden(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "hidden", "gone", "0":
		return true
	}
	return false
}

func (e *Engine) bindString(s string, dc *model.DataContext, stats *Stats) string {
	if !strings.Contains(s, "${") {
		return s
	}
	sub := Substitute(s, dc)
	stats.add(sub)
	if !sub.Complete() {
		e.logger.Debug("binding: unresolved macro", zap.String("value", s))
	}
	return sub.Text
}

// ResolveMaxForIndex resolves a loop bound. A literal integer is returned
// directly; otherwise the macro is resolved against dc. Nil means the bound
// is indeterminate, which a loop expansion treats as zero iterations.
func (e *Engine) ResolveMaxForIndex(raw string, dc *model.DataContext) *int {
	var stats Stats
	return e.resolveMaxForIndex(raw, dc, &stats)
}

func (e *Engine) resolveMaxForIndex(raw string, dc *model.DataContext, stats *Stats) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return &n
	}

	bindings := ParseBindings(raw)
	if len(bindings) == 1 && bindings[0].Expression == raw {
		// A lone macro keeps the value's type, so {"count": 5} yields 5.
		stats.Total++
		b := bindings[0]
		if root, _, ok := dc.Lookup(b.SourceName); ok {
			if n, ok := toInt(ResolvePath(root, b.Path)); ok {
				stats.Resolved++
				return &n
			}
		}
		if b.DefaultValue != nil {
			if n, ok := toInt(*b.DefaultValue); ok {
				stats.Resolved++
				return &n
			}
		}
		e.logger.Warn("binding: loop bound did not resolve to an integer", zap.String("max_for_index", raw))
		return nil
	}

	sub := Substitute(raw, dc)
	stats.add(sub)
	if n, ok := toInt(sub.Text); ok && sub.Complete() {
		return &n
	}
	e.logger.Warn("binding: loop bound did not resolve to an integer",
		zap.String("max_for_index", raw), zap.String("resolved", sub.Text))
	return nil
}

// ResolveMaxForIndex resolves a loop bound without logging.
func ResolveMaxForIndex(raw string, dc *model.DataContext) *int {
	return NewEngine().ResolveMaxForIndex(raw, dc)
}

// BindComponent returns a bound copy of a parsed tree. Each property with
// macros gets typed Bindings, and ResolvedValue when every macro resolved.
// Loop layouts bind only their own properties, styles and bound; their
// children are copied untouched.
func (e *Engine) BindComponent(c model.Component, dc *model.DataContext) model.Component {
	out, _ := e.BindComponentWithStats(c, dc)
	return out
}

// BindComponentWithStats is BindComponent plus the binding counters.
func (e *Engine) BindComponentWithStats(c model.Component, dc *model.DataContext) (model.Component, Stats) {
	var stats Stats
	out := model.CloneComponent(c)
	e.bindComponent(out, dc, &stats)
	return out, stats
}

func (e *Engine) bindComponent(c model.Component, dc *model.DataContext, stats *Stats) {
	if c == nil {
		return
	}
	b := c.Base()
	for i := range b.Properties {
		e.bindProperty(&b.Properties[i], dc, stats)
	}
	for i := range b.Styles {
		b.Styles[i].Value = e.bindString(b.Styles[i].Value, dc, stats)
	}

	l, ok := c.(*model.LayoutComponent)
	if !ok {
		return
	}
	if l.LayoutCode.IsLoop() {
		if n := e.resolveMaxForIndex(l.MaxForIndex, dc, stats); n != nil {
			l.MaxForIndex = strconv.Itoa(*n)
		}
		return
	}
	for _, child := range l.Children {
		e.bindComponent(child, dc, stats)
	}
}

func (e *Engine) bindProperty(p *model.ComponentProperty, dc *model.DataContext, stats *Stats) {
	if !strings.Contains(p.RawValue, "${") {
		return
	}
	sub := Substitute(p.RawValue, dc)
	stats.add(sub)
	p.Bindings = sub.Bindings
	if sub.Complete() {
		v := sub.Text
		p.ResolvedValue = &v
	} else {
		p.ResolvedValue = nil
	}
}
