// Package binding parses ${...} macros and substitutes them with values from
// a model.DataContext.
package binding

import (
	"regexp"
	"strings"

	"github.com/pitabwire/sdui/model"
)

// macroPattern matches ${name[index].remainder|default}. Only name is required.
var macroPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_\-]*)(\[\d+\])?(\.[^}|]*)?(?:\|([^}]*))?\}`)

// ParseBindings returns one DataBinding per macro in text, in order of
// appearance. Expression holds the exact matched text. SourceType defaults to
// JSON_FILE; the binder sets the real type when it finds the source.
func ParseBindings(text string) []model.DataBinding {
	if !strings.Contains(text, "${") {
		return nil
	}
	matches := macroPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]model.DataBinding, 0, len(matches))
	for _, m := range matches {
		b := model.DataBinding{
			SourceType: model.SourceJSONFile,
			SourceName: text[m[2]:m[3]],
			Expression: text[m[0]:m[1]],
		}
		var path strings.Builder
		if m[4] >= 0 {
			path.WriteString(text[m[4]:m[5]])
		}
		if m[6] >= 0 {
			rest := text[m[6]+1 : m[7]]
			if rest != "" && path.Len() > 0 && rest[0] != '[' {
				path.WriteByte('.')
			}
			path.WriteString(rest)
		}
		b.Path = path.String()
		if m[8] >= 0 {
			def := text[m[8]:m[9]]
			b.DefaultValue = &def
		}
		out = append(out, b)
	}
	return out
}

// Substitution is the outcome of substituting one text value.
type Substitution struct {
	Text     string
	Bindings []model.DataBinding
	Total    int
	Resolved int
}

// Complete reports whether every macro was substituted.
func (s Substitution) Complete() bool { return s.Resolved == s.Total }

// Substitute replaces every macro in text it can resolve against dc. A macro
// whose source or path cannot be resolved is replaced by its default value
// when it has one and is otherwise left as literal text.
func Substitute(text string, dc *model.DataContext) Substitution {
	bindings := ParseBindings(text)
	sub := Substitution{Text: text, Bindings: bindings, Total: len(bindings)}
	if len(bindings) == 0 {
		return sub
	}

	// Matches come from the original text, so substituted values are never
	// rescanned for macros.
	matches := macroPattern.FindAllStringIndex(text, -1)
	var out strings.Builder
	out.Grow(len(text))
	last := 0
	for i, m := range matches {
		out.WriteString(text[last:m[0]])
		last = m[1]
		replacement, ok := resolveBinding(&bindings[i], dc)
		if !ok {
			out.WriteString(text[m[0]:m[1]])
			continue
		}
		sub.Resolved++
		out.WriteString(replacement)
	}
	out.WriteString(text[last:])
	sub.Text = out.String()
	return sub
}

// resolveBinding looks up the binding's source and path. It records the
// source type the value was found in.
func resolveBinding(b *model.DataBinding, dc *model.DataContext) (string, bool) {
	root, typ, found := dc.Lookup(b.SourceName)
	if found {
		b.SourceType = typ
		v := ResolvePath(root, b.Path)
		if s, ok := Stringify(v); ok {
			return s, true
		}
	}
	if b.DefaultValue != nil {
		return *b.DefaultValue, true
	}
	return "", false
}
