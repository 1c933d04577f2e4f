package model

// LayoutKind is the layoutCode of a layout node.
type LayoutKind string

// Layout kinds.
const (
	LayoutVertical      LayoutKind = "vertical"
	LayoutHorizontal    LayoutKind = "horizontal"
	LayoutBox           LayoutKind = "box"
	LayoutVerticalFor   LayoutKind = "vertical_for"
	LayoutHorizontalFor LayoutKind = "horizontal_for"
)

// IsLoop reports whether the layout replicates its children per iteration.
func (k LayoutKind) IsLoop() bool {
	return k == LayoutVerticalFor || k == LayoutHorizontalFor
}

// Component is a node of a parsed screen tree. The only implementations are
// *LayoutComponent and *WidgetComponent.
type Component interface {
	Base() *ComponentBase
	isComponent()
}

// ComponentBase holds the fields shared by layouts and widgets.
type ComponentBase struct {
	Title        string
	Code         string
	Properties   []ComponentProperty
	Styles       []ComponentStyle
	Events       []Event
	Index        int
	ForIndexName string
	MaxForIndex  string
}

// Base returns the shared fields.
func (b *ComponentBase) Base() *ComponentBase { return b }

func (*ComponentBase) isComponent() {}

// Property returns the property with the given code.
func (b *ComponentBase) Property(code string) (ComponentProperty, bool) {
	for _, p := range b.Properties {
		if p.Code == code {
			return p, true
		}
	}
	return ComponentProperty{}, false
}

// PropertyValue returns the effective value of a property: the resolved value
// when binding produced one, the raw value otherwise.
func (b *ComponentBase) PropertyValue(code string) (string, bool) {
	p, ok := b.Property(code)
	if !ok {
		return "", false
	}
	return p.Value(), true
}

// StyleCode returns the value of the style reference with the given code.
func (b *ComponentBase) StyleCode(code string) string {
	for _, s := range b.Styles {
		if s.Code == code {
			return s.Value
		}
	}
	return ""
}

// LayoutComponent is a container node.
type LayoutComponent struct {
	ComponentBase
	LayoutCode LayoutKind
	Children   []Component
}

// WidgetComponent is a leaf node rendered by a widget.
type WidgetComponent struct {
	ComponentBase
	WidgetCode string
}

// ComponentProperty is one property of a node. ResolvedValue is set by the
// binder when every macro in RawValue could be substituted.
type ComponentProperty struct {
	Code          string
	RawValue      string
	ResolvedValue *string
	Bindings      []DataBinding
}

// Value returns ResolvedValue when present, RawValue otherwise.
func (p ComponentProperty) Value() string {
	if p.ResolvedValue != nil {
		return *p.ResolvedValue
	}
	return p.RawValue
}

// ComponentStyle references a style by code, e.g. {textStyle, h1}.
type ComponentStyle struct {
	Code  string
	Value string
}

// CloneComponent returns a deep copy of a parsed tree.
func CloneComponent(c Component) Component {
	switch n := c.(type) {
	case nil:
		return nil
	case *LayoutComponent:
		cp := *n
		cp.ComponentBase = n.ComponentBase.clone()
		if n.Children != nil {
			cp.Children = make([]Component, len(n.Children))
			for i, child := range n.Children {
				cp.Children[i] = CloneComponent(child)
			}
		}
		return &cp
	case *WidgetComponent:
		cp := *n
		cp.ComponentBase = n.ComponentBase.clone()
		return &cp
	default:
		return c
	}
}

func (b ComponentBase) clone() ComponentBase {
	if b.Properties != nil {
		props := make([]ComponentProperty, len(b.Properties))
		for i, p := range b.Properties {
			props[i] = p
			if p.ResolvedValue != nil {
				v := *p.ResolvedValue
				props[i].ResolvedValue = &v
			}
			if p.Bindings != nil {
				props[i].Bindings = make([]DataBinding, len(p.Bindings))
				for j, db := range p.Bindings {
					props[i].Bindings[j] = db
					if db.DefaultValue != nil {
						def := *db.DefaultValue
						props[i].Bindings[j].DefaultValue = &def
					}
				}
			}
		}
		b.Properties = props
	}
	if b.Styles != nil {
		b.Styles = append([]ComponentStyle(nil), b.Styles...)
	}
	if b.Events != nil {
		events := make([]Event, len(b.Events))
		for i, ev := range b.Events {
			events[i] = ev
			if ev.Actions != nil {
				events[i].Actions = make([]EventAction, len(ev.Actions))
				for j, a := range ev.Actions {
					events[i].Actions[j] = a
					if a.Properties != nil {
						props := make(map[string]string, len(a.Properties))
						for k, v := range a.Properties {
							props[k] = v
						}
						events[i].Actions[j].Properties = props
					}
				}
			}
		}
		b.Events = events
	}
	return b
}
