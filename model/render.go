package model

// ModelKind is the discriminant of a ComponentModel.
type ModelKind string

// Model kinds.
const (
	KindLayout ModelKind = "layout"
	KindLabel  ModelKind = "label"
	KindButton ModelKind = "button"
	KindImage  ModelKind = "image"
	KindAppBar ModelKind = "appbar"
	KindInput  ModelKind = "input"
)

// ComponentModel is a render-ready node. Implementations are *LayoutModel,
// *LabelModel, *ButtonModel, *ImageModel, *AppBarModel and *InputModel; every
// one embeds ModelBase.
type ComponentModel interface {
	Kind() ModelKind
	Common() *ModelBase
	isComponentModel()
}

// ModelBase holds the fields every render node carries.
type ModelBase struct {
	Code           string
	Title          string
	Index          int
	Modifier       Modifier
	Visible        bool
	VisibilityCode string
	Actions        []Action
}

// Common returns the shared fields.
func (b *ModelBase) Common() *ModelBase { return b }

func (*ModelBase) isComponentModel() {}

// DimensionMode says how a node is sized along one axis.
type DimensionMode string

// Dimension modes.
const (
	DimensionFill  DimensionMode = "FILL"
	DimensionWrap  DimensionMode = "WRAP"
	DimensionFixed DimensionMode = "FIXED"
)

// Dimension is a width or height. Value is only meaningful for FIXED.
type Dimension struct {
	Mode  DimensionMode `json:"mode"`
	Value int           `json:"value,omitempty"`
}

// Modifier carries sizing and box styling. The *StyleCode fields are always
// set from the source; the resolved fields are filled by the style pass.
type Modifier struct {
	Width                    Dimension
	Height                   Dimension
	PaddingStyleCode         string
	Padding                  *Padding
	RoundStyleCode           string
	Radius                   *int
	BackgroundColorStyleCode string
	BackgroundColor          *ColorValue
	AlignmentStyleCode       string
	Alignment                string
}

// Padding is a resolved padding style.
type Padding struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// FontStyle is a resolved text style.
type FontStyle struct {
	Family string
	Size   int
	Weight string
}

// ColorValue is a resolved colour style.
type ColorValue struct {
	Light ColorTheme
	Dark  ColorTheme
}

// Action is one event action attached to a node, tagged with the event that
// triggers it.
type Action struct {
	Event      string            `json:"event"`
	Code       string            `json:"code"`
	Order      int               `json:"order"`
	Properties map[string]string `json:"properties,omitempty"`
}

// TextAppearance is the text styling shared by text-bearing nodes.
type TextAppearance struct {
	TextStyleCode  string
	Font           *FontStyle
	ColorStyleCode string
	Color          *ColorValue
}

// LayoutModel is a container node.
type LayoutModel struct {
	ModelBase
	LayoutKind   LayoutKind
	Children     []ComponentModel
	ForIndexName string
	MaxForIndex  string
	// ResolvedMaxForIndex is the loop bound after binding; nil means the bound
	// could not be resolved.
	ResolvedMaxForIndex *int
}

// Kind implements ComponentModel.
func (*LayoutModel) Kind() ModelKind { return KindLayout }

// LabelModel renders static text.
type LabelModel struct {
	ModelBase
	TextAppearance
	Text string
}

// Kind implements ComponentModel.
func (*LabelModel) Kind() ModelKind { return KindLabel }

// ButtonModel renders a tappable text button.
type ButtonModel struct {
	ModelBase
	TextAppearance
	Text string
}

// Kind implements ComponentModel.
func (*ButtonModel) Kind() ModelKind { return KindButton }

// ImageModel renders a remote image.
type ImageModel struct {
	ModelBase
	URL string
}

// Kind implements ComponentModel.
func (*ImageModel) Kind() ModelKind { return KindImage }

// AppBarModel renders a screen title bar.
type AppBarModel struct {
	ModelBase
	TextAppearance
	Title string
}

// Kind implements ComponentModel.
func (*AppBarModel) Kind() ModelKind { return KindAppBar }

// InputModel renders a text field writing to Variable.
type InputModel struct {
	ModelBase
	TextAppearance
	Hint          string
	Value         string
	Variable      string
	InputType     string
	ChangeActions []Action
}

// Kind implements ComponentModel.
func (*InputModel) Kind() ModelKind { return KindInput }

// CloneModel returns a deep copy of a tree. Variants it does not know are
// returned as is.
func CloneModel(m ComponentModel) ComponentModel {
	switch n := m.(type) {
	case nil:
		return nil
	case *LayoutModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		if n.ResolvedMaxForIndex != nil {
			v := *n.ResolvedMaxForIndex
			c.ResolvedMaxForIndex = &v
		}
		if n.Children != nil {
			c.Children = make([]ComponentModel, len(n.Children))
			for i, child := range n.Children {
				c.Children[i] = CloneModel(child)
			}
		}
		return &c
	case *LabelModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		c.TextAppearance = n.TextAppearance.clone()
		return &c
	case *ButtonModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		c.TextAppearance = n.TextAppearance.clone()
		return &c
	case *ImageModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		return &c
	case *AppBarModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		c.TextAppearance = n.TextAppearance.clone()
		return &c
	case *InputModel:
		c := *n
		c.ModelBase = n.ModelBase.clone()
		c.TextAppearance = n.TextAppearance.clone()
		c.ChangeActions = CloneActions(n.ChangeActions)
		return &c
	default:
		return m
	}
}

func (b ModelBase) clone() ModelBase {
	b.Actions = CloneActions(b.Actions)
	b.Modifier = b.Modifier.clone()
	return b
}

func (m Modifier) clone() Modifier {
	if m.Padding != nil {
		p := *m.Padding
		m.Padding = &p
	}
	if m.Radius != nil {
		r := *m.Radius
		m.Radius = &r
	}
	if m.BackgroundColor != nil {
		c := *m.BackgroundColor
		m.BackgroundColor = &c
	}
	return m
}

func (t TextAppearance) clone() TextAppearance {
	if t.Font != nil {
		f := *t.Font
		t.Font = &f
	}
	if t.Color != nil {
		c := *t.Color
		t.Color = &c
	}
	return t
}

// CloneActions deep-copies an action list.
func CloneActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		out[i] = a
		if a.Properties != nil {
			out[i].Properties = make(map[string]string, len(a.Properties))
			for k, v := range a.Properties {
				out[i].Properties[k] = v
			}
		}
	}
	return out
}
