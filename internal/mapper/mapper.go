// Package mapper converts parsed components into render models.
package mapper

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pitabwire/sdui/internal/binding"
	"github.com/pitabwire/sdui/internal/style"
	"github.com/pitabwire/sdui/model"
)

// Widget codes with a dedicated model.
const (
	WidgetLabel  = "label"
	WidgetButton = "button"
	WidgetImage  = "image"
	WidgetAppBar = "appbar"
	WidgetInput  = "input"
)

// Event codes that produce actions.
const (
	EventTap    = "onTap"
	EventChange = "onChange"
)

// Node outcomes reported to observers.
const (
	OutcomeMapped   = "mapped"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

// Observer is told the outcome of every node the mapper visits.
type Observer interface {
	OnNodeMapped(kind, outcome string)
}

// Mapper converts model.Component trees into model.ComponentModel trees. It
// holds no per-call state and is safe for concurrent use.
type Mapper struct {
	logger    *zap.Logger
	observers []Observer
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver adds a node observer.
func WithObserver(obs Observer) Option {
	return func(m *Mapper) { m.observers = append(m.observers, obs) }
}

// New creates a Mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MapScreen maps the root component of a screen. It returns nil when the
// screen has no root.
func (m *Mapper) MapScreen(s model.ParsedScreen, reg *style.Registry) model.ComponentModel {
	if s.Root == nil {
		return nil
	}
	return m.Map(s.Root, reg)
}

// Map converts one component and its subtree. It returns nil when a widget
// lacks its required property; only that node is skipped. Unknown widget
// codes become a placeholder label.
func (m *Mapper) Map(c model.Component, reg *style.Registry) model.ComponentModel {
	switch n := c.(type) {
	case *model.LayoutComponent:
		return m.mapLayout(n, reg)
	case *model.WidgetComponent:
		return m.mapWidget(n, reg)
	}
	return nil
}

func (m *Mapper) mapLayout(l *model.LayoutComponent, reg *style.Registry) model.ComponentModel {
	kind := l.LayoutCode
	switch kind {
	case model.LayoutVertical, model.LayoutHorizontal, model.LayoutBox,
		model.LayoutVerticalFor, model.LayoutHorizontalFor:
	default:
		m.logger.Debug("mapper: unknown layout code, using vertical",
			zap.String("code", l.Code), zap.String("layout_code", string(kind)))
		kind = model.LayoutVertical
	}

	out := &model.LayoutModel{
		ModelBase:    m.base(&l.ComponentBase, reg),
		LayoutKind:   kind,
		ForIndexName: l.ForIndexName,
		MaxForIndex:  l.MaxForIndex,
	}
	for _, child := range l.Children {
		if cm := m.Map(child, reg); cm != nil {
			out.Children = append(out.Children, cm)
		}
	}
	m.notify("layout", OutcomeMapped)
	return out
}

func (m *Mapper) mapWidget(w *model.WidgetComponent, reg *style.Registry) model.ComponentModel {
	code := strings.ToLower(strings.TrimSpace(w.WidgetCode))
	b := &w.ComponentBase

	switch code {
	case WidgetLabel:
		text, ok := m.required(w, "text")
		if !ok {
			return nil
		}
		m.notify(code, OutcomeMapped)
		return &model.LabelModel{ModelBase: m.base(b, reg), TextAppearance: textAppearance(b, reg), Text: text}
	case WidgetButton:
		text, ok := m.required(w, "text")
		if !ok {
			return nil
		}
		m.notify(code, OutcomeMapped)
		return &model.ButtonModel{ModelBase: m.base(b, reg), TextAppearance: textAppearance(b, reg), Text: text}
	case WidgetImage:
		url, ok := m.required(w, "url")
		if !ok {
			return nil
		}
		m.notify(code, OutcomeMapped)
		return &model.ImageModel{ModelBase: m.base(b, reg), URL: url}
	case WidgetAppBar:
		title, ok := m.required(w, "title")
		if !ok {
			return nil
		}
		m.notify(code, OutcomeMapped)
		return &model.AppBarModel{ModelBase: m.base(b, reg), TextAppearance: textAppearance(b, reg), Title: title}
	case WidgetInput:
		variable, ok := m.required(w, "variable")
		if !ok {
			return nil
		}
		hint, _ := b.PropertyValue("hint")
		value, _ := b.PropertyValue("value")
		inputType, _ := b.PropertyValue("inputType")
		if inputType == "" {
			inputType = "text"
		}
		m.notify(code, OutcomeMapped)
		return &model.InputModel{
			ModelBase:      m.base(b, reg),
			TextAppearance: textAppearance(b, reg),
			Hint:           hint,
			Value:          value,
			Variable:       variable,
			InputType:      inputType,
			ChangeActions:  actionsFor(b.Events, EventChange),
		}
	default:
		m.logger.Warn("mapper: unsupported widget, using placeholder",
			zap.String("code", w.Code), zap.String("widget_code", w.WidgetCode))
		m.notify("unknown", OutcomeFallback)
		return &model.LabelModel{
			ModelBase:      m.base(b, reg),
			TextAppearance: textAppearance(b, reg),
			Text:           PlaceholderText(w.WidgetCode),
		}
	}
}

// PlaceholderText is the text of the label that stands in for an
// unsupported widget.
func PlaceholderText(widgetCode string) string {
	return "Unsupported widget: " + widgetCode
}

func (m *Mapper) required(w *model.WidgetComponent, prop string) (string, bool) {
	v, ok := w.PropertyValue(prop)
	if !ok {
		m.logger.Warn("mapper: widget missing required property, skipping",
			zap.String("code", w.Code), zap.String("widget_code", w.WidgetCode), zap.String("property", prop))
		m.notify(strings.ToLower(w.WidgetCode), OutcomeSkipped)
	}
	return v, ok
}

func (m *Mapper) notify(kind, outcome string) {
	for _, obs := range m.observers {
		obs.OnNodeMapped(kind, outcome)
	}
}

func (m *Mapper) base(b *model.ComponentBase, reg *style.Registry) model.ModelBase {
	mb := model.ModelBase{
		Code:     b.Code,
		Title:    b.Title,
		Index:    b.Index,
		Modifier: modifier(b, reg),
		Visible:  true,
		Actions:  actionsFor(b.Events, EventTap),
	}
	if v, ok := b.PropertyValue("visibility"); ok {
		mb.VisibilityCode = v
		if binding.IsHidden(v) {
			mb.Visible = false
		}
	}
	return mb
}

// styleRef returns a style code declared either in the node's styles or as a
// property of the same name.
func styleRef(b *model.ComponentBase, name string) string {
	if v := b.StyleCode(name); v != "" {
		return v
	}
	v, _ := b.PropertyValue(name)
	return v
}

func modifier(b *model.ComponentBase, reg *style.Registry) model.Modifier {
	mod := model.Modifier{
		Width:                    dimension(b, "width"),
		Height:                   dimension(b, "height"),
		PaddingStyleCode:         styleRef(b, "paddingStyle"),
		RoundStyleCode:           styleRef(b, "roundStyle"),
		BackgroundColorStyleCode: styleRef(b, "backgroundColorStyle"),
		AlignmentStyleCode:       styleRef(b, "alignmentStyle"),
	}
	resolveModifier(&mod, reg)
	return mod
}

func textAppearance(b *model.ComponentBase, reg *style.Registry) model.TextAppearance {
	t := model.TextAppearance{
		TextStyleCode:  styleRef(b, "textStyle"),
		ColorStyleCode: styleRef(b, "colorStyle"),
	}
	resolveText(&t, reg)
	return t
}

// dimension converts a width or height property. fillmax and unparseable
// values fill, wrapcontent and a missing property wrap, integers are fixed.
func dimension(b *model.ComponentBase, prop string) model.Dimension {
	raw, ok := b.PropertyValue(prop)
	if !ok {
		return model.Dimension{Mode: model.DimensionWrap}
	}
	return ParseDimension(raw)
}

// ParseDimension converts a size keyword or integer literal.
func ParseDimension(raw string) model.Dimension {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "fillmax":
		return model.Dimension{Mode: model.DimensionFill}
	case "wrapcontent":
		return model.Dimension{Mode: model.DimensionWrap}
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.Dimension{Mode: model.DimensionFill}
		}
		return model.Dimension{Mode: model.DimensionFixed, Value: n}
	}
}

// actionsFor flattens the actions of the events with the given code, ordered
// by event order and then action order.
func actionsFor(events []model.Event, code string) []model.Action {
	var matched []model.Event
	for _, ev := range events {
		if ev.Code == code {
			matched = append(matched, ev)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Order < matched[j].Order })

	var out []model.Action
	for _, ev := range matched {
		acts := append([]model.EventAction(nil), ev.Actions...)
		sort.SliceStable(acts, func(i, j int) bool { return acts[i].Order < acts[j].Order })
		for _, a := range acts {
			action := model.Action{Event: ev.Code, Code: a.Code, Order: a.Order}
			if len(a.Properties) > 0 {
				action.Properties = make(map[string]string, len(a.Properties))
				for k, v := range a.Properties {
					action.Properties[k] = v
				}
			}
			out = append(out, action)
		}
	}
	return out
}
