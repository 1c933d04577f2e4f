package mapper

import (
	"github.com/pitabwire/sdui/internal/style"
	"github.com/pitabwire/sdui/model"
)

// ResolveStyles returns a copy of tree with every resolved style value
// refilled from its style code. It runs after a tree is rehydrated from the
// cache or after binding changed style codes. Unknown codes clear the value.
func ResolveStyles(tree model.ComponentModel, reg *style.Registry) model.ComponentModel {
	out := model.CloneModel(tree)
	resolveTree(out, reg)
	return out
}

func resolveTree(m model.ComponentModel, reg *style.Registry) {
	if m == nil {
		return
	}
	resolveModifier(&m.Common().Modifier, reg)

	switch n := m.(type) {
	case *model.LayoutModel:
		for _, child := range n.Children {
			resolveTree(child, reg)
		}
	case *model.LabelModel:
		resolveText(&n.TextAppearance, reg)
	case *model.ButtonModel:
		resolveText(&n.TextAppearance, reg)
	case *model.AppBarModel:
		resolveText(&n.TextAppearance, reg)
	case *model.InputModel:
		resolveText(&n.TextAppearance, reg)
	}
}

func resolveModifier(mod *model.Modifier, reg *style.Registry) {
	mod.Padding = reg.PaddingValue(mod.PaddingStyleCode)
	mod.Radius = reg.Radius(mod.RoundStyleCode)
	mod.BackgroundColor = reg.ColorValue(mod.BackgroundColorStyleCode)
	mod.Alignment = ""
	if as, ok := reg.Alignment(mod.AlignmentStyleCode); ok {
		mod.Alignment = as.Code
	}
}

func resolveText(t *model.TextAppearance, reg *style.Registry) {
	t.Font = reg.Font(t.TextStyleCode)
	t.Color = reg.ColorValue(t.ColorStyleCode)
}
