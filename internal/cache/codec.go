// Package cache converts render models to their persisted form and stores
// mapped microapps.
package cache

import (
	"fmt"
	"time"

	"github.com/pitabwire/sdui/model"
)

// ToCached converts a render tree to its persisted form. Resolved style
// values are dropped; only style codes survive. A variant with no
// conversion fails with UNSUPPORTED_MODEL_VARIANT.
func ToCached(m model.ComponentModel) (model.CachedComponentModel, error) {
	if m == nil {
		return model.CachedComponentModel{}, model.NewUnsupportedModelVariantError("<nil>")
	}

	b := m.Common()
	out := model.CachedComponentModel{
		Kind:           m.Kind(),
		Code:           b.Code,
		Title:          b.Title,
		Index:          b.Index,
		Visible:        b.Visible,
		VisibilityCode: b.VisibilityCode,
		Actions:        model.CloneActions(b.Actions),

		Width:                    b.Modifier.Width,
		Height:                   b.Modifier.Height,
		PaddingStyleCode:         b.Modifier.PaddingStyleCode,
		RoundStyleCode:           b.Modifier.RoundStyleCode,
		BackgroundColorStyleCode: b.Modifier.BackgroundColorStyleCode,
		AlignmentStyleCode:       b.Modifier.AlignmentStyleCode,
	}

	switch n := m.(type) {
	case *model.LayoutModel:
		out.LayoutKind = n.LayoutKind
		out.ForIndexName = n.ForIndexName
		out.MaxForIndex = n.MaxForIndex
		if n.ResolvedMaxForIndex != nil {
			v := *n.ResolvedMaxForIndex
			out.ResolvedMaxForIndex = &v
		}
		for i, child := range n.Children {
			cc, err := ToCached(child)
			if err != nil {
				return model.CachedComponentModel{}, fmt.Errorf("child %d of %q: %w", i, n.Code, err)
			}
			out.Children = append(out.Children, cc)
		}
	case *model.LabelModel:
		textCodes(&out, n.TextAppearance)
		out.Text = n.Text
	case *model.ButtonModel:
		textCodes(&out, n.TextAppearance)
		out.Text = n.Text
	case *model.ImageModel:
		out.URL = n.URL
	case *model.AppBarModel:
		textCodes(&out, n.TextAppearance)
		out.Text = n.Title
	case *model.InputModel:
		textCodes(&out, n.TextAppearance)
		out.Hint = n.Hint
		out.Value = n.Value
		out.Variable = n.Variable
		out.InputType = n.InputType
		out.ChangeActions = model.CloneActions(n.ChangeActions)
	default:
		return model.CachedComponentModel{}, model.NewUnsupportedModelVariantError(string(m.Kind()))
	}
	return out, nil
}

func textCodes(out *model.CachedComponentModel, t model.TextAppearance) {
	out.TextStyleCode = t.TextStyleCode
	out.ColorStyleCode = t.ColorStyleCode
}

// ToComponentModel rebuilds a render tree from its persisted form. Resolved
// style values come back empty and are refilled by the style pass.
func ToComponentModel(c model.CachedComponentModel) (model.ComponentModel, error) {
	base := model.ModelBase{
		Code:           c.Code,
		Title:          c.Title,
		Index:          c.Index,
		Visible:        c.Visible,
		VisibilityCode: c.VisibilityCode,
		Actions:        model.CloneActions(c.Actions),
		Modifier: model.Modifier{
			Width:                    c.Width,
			Height:                   c.Height,
			PaddingStyleCode:         c.PaddingStyleCode,
			RoundStyleCode:           c.RoundStyleCode,
			BackgroundColorStyleCode: c.BackgroundColorStyleCode,
			AlignmentStyleCode:       c.AlignmentStyleCode,
		},
	}
	text := model.TextAppearance{TextStyleCode: c.TextStyleCode, ColorStyleCode: c.ColorStyleCode}

	switch c.Kind {
	case model.KindLayout:
		l := &model.LayoutModel{
			ModelBase:    base,
			LayoutKind:   c.LayoutKind,
			ForIndexName: c.ForIndexName,
			MaxForIndex:  c.MaxForIndex,
		}
		if c.ResolvedMaxForIndex != nil {
			v := *c.ResolvedMaxForIndex
			l.ResolvedMaxForIndex = &v
		}
		for i, cc := range c.Children {
			child, err := ToComponentModel(cc)
			if err != nil {
				return nil, fmt.Errorf("child %d of %q: %w", i, c.Code, err)
			}
			l.Children = append(l.Children, child)
		}
		return l, nil
	case model.KindLabel:
		return &model.LabelModel{ModelBase: base, TextAppearance: text, Text: c.Text}, nil
	case model.KindButton:
		return &model.ButtonModel{ModelBase: base, TextAppearance: text, Text: c.Text}, nil
	case model.KindImage:
		return &model.ImageModel{ModelBase: base, URL: c.URL}, nil
	case model.KindAppBar:
		return &model.AppBarModel{ModelBase: base, TextAppearance: text, Title: c.Text}, nil
	case model.KindInput:
		return &model.InputModel{
			ModelBase:      base,
			TextAppearance: text,
			Hint:           c.Hint,
			Value:          c.Value,
			Variable:       c.Variable,
			InputType:      c.InputType,
			ChangeActions:  model.CloneActions(c.ChangeActions),
		}, nil
	}
	return nil, model.NewUnsupportedModelVariantError(string(c.Kind))
}

// MappedScreen is a screen whose root has been mapped to a render tree.
type MappedScreen struct {
	Screen model.ParsedScreen
	Root   model.ComponentModel
}

// FromParsed builds the persisted form of a parsed and mapped microapp.
// Screens whose root mapped to nil are stored without a root.
func FromParsed(code string, parsed *model.ParsedMicroappResult, screens []MappedScreen, now time.Time) (*model.CachedMicroappData, error) {
	data := &model.CachedMicroappData{
		MicroappCode: code,
		Screens:      make([]model.CachedScreen, 0, len(screens)),
		CachedAt:     now.UTC(),
	}
	if parsed != nil {
		data.Microapp = parsed.Microapp
		data.Styles = parsed.Styles
		data.Queries = parsed.Queries
		data.Events = parsed.Events
		data.Widgets = parsed.Widgets
		data.Layouts = parsed.Layouts
	}

	for _, ms := range screens {
		cs := model.CachedScreen{
			ScreenCode:      ms.Screen.ScreenCode,
			Title:           ms.Screen.Title,
			ScreenShortCode: ms.Screen.ScreenShortCode,
			Deeplink:        ms.Screen.Deeplink,
			Queries:         ms.Screen.Queries,
		}
		if ms.Root != nil {
			root, err := ToCached(ms.Root)
			if err != nil {
				return nil, fmt.Errorf("screen %q: %w", cs.ScreenCode, err)
			}
			cs.Root = &root
		}
		data.Screens = append(data.Screens, cs)
	}
	return data, nil
}

// ToScreen rebuilds the render tree of one cached screen. A screen stored
// without a root yields nil.
func ToScreen(cs model.CachedScreen) (model.ComponentModel, error) {
	if cs.Root == nil {
		return nil, nil
	}
	root, err := ToComponentModel(*cs.Root)
	if err != nil {
		return nil, fmt.Errorf("screen %q: %w", cs.ScreenCode, err)
	}
	return root, nil
}

// ToScreens rebuilds every screen of data keyed by screen code.
func ToScreens(data *model.CachedMicroappData) (map[string]model.ComponentModel, error) {
	out := make(map[string]model.ComponentModel, len(data.Screens))
	for _, cs := range data.Screens {
		root, err := ToScreen(cs)
		if err != nil {
			return nil, err
		}
		out[cs.ScreenCode] = root
	}
	return out, nil
}
