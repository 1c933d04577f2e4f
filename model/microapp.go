package model

// Microapp is the root descriptor of a microapp package. Its identity is Code.
type Microapp struct {
	Title       string   `json:"title"`
	Code        string   `json:"code"`
	ShortCode   string   `json:"short_code,omitempty"`
	Deeplink    string   `json:"deeplink,omitempty"`
	Persistents []string `json:"persistents,omitempty"`
}

// AllStyles is the style registry of a microapp. Each list is looked up by
// code; uniqueness is not enforced and the first match wins.
type AllStyles struct {
	TextStyles      []TextStyle      `json:"text_styles,omitempty"`
	ColorStyles     []ColorStyle     `json:"color_styles,omitempty"`
	AlignmentStyles []AlignmentStyle `json:"alignment_styles,omitempty"`
	PaddingStyles   []PaddingStyle   `json:"padding_styles,omitempty"`
	RoundStyles     []RoundStyle     `json:"round_styles,omitempty"`
}

// IsEmpty reports whether the registry holds no styles at all.
func (s AllStyles) IsEmpty() bool {
	return len(s.TextStyles) == 0 && len(s.ColorStyles) == 0 && len(s.AlignmentStyles) == 0 &&
		len(s.PaddingStyles) == 0 && len(s.RoundStyles) == 0
}

// TextStyle describes a font.
type TextStyle struct {
	Code       string `json:"code"`
	FontFamily string `json:"font_family,omitempty"`
	FontSize   int    `json:"font_size,omitempty"`
	FontWeight string `json:"font_weight,omitempty"`
}

// ColorStyle holds the light and dark theme variants of a colour.
type ColorStyle struct {
	Code  string     `json:"code"`
	Light ColorTheme `json:"light"`
	Dark  ColorTheme `json:"dark"`
}

// ColorTheme is one colour with an opacity percentage.
type ColorTheme struct {
	Color   string `json:"color"`
	Opacity int    `json:"opacity"`
}

// AlignmentStyle names an alignment; the code is the alignment.
type AlignmentStyle struct {
	Code string `json:"code"`
}

// PaddingStyle holds the four paddings of a node.
type PaddingStyle struct {
	Code   string `json:"code"`
	Left   int    `json:"left"`
	Top    int    `json:"top"`
	Right  int    `json:"right"`
	Bottom int    `json:"bottom"`
}

// RoundStyle holds a corner radius.
type RoundStyle struct {
	Code   string `json:"code"`
	Radius int    `json:"radius"`
}

// Query describes a backend endpoint the microapp can call.
type Query struct {
	Code       string            `json:"code"`
	Title      string            `json:"title,omitempty"`
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ScreenQuery is a query invocation bound to one screen.
type ScreenQuery struct {
	Code       string            `json:"code"`
	ScreenCode string            `json:"screen_code"`
	QueryCode  string            `json:"query_code"`
	Order      int               `json:"order"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Event is a named trigger owning an ordered list of actions.
type Event struct {
	Code    string        `json:"code"`
	Order   int           `json:"order"`
	Actions []EventAction `json:"actions,omitempty"`
}

// EventAction is one step of an event. Actions are data; interpreting them
// is the renderer's concern.
type EventAction struct {
	Code       string            `json:"code"`
	Order      int               `json:"order"`
	Properties map[string]string `json:"properties,omitempty"`
}

// WidgetDefinition is an entry of the widget registry.
type WidgetDefinition struct {
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
}

// LayoutDefinition is an entry of the layout registry.
type LayoutDefinition struct {
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
}

// ParsedScreen is one screen document. It is immutable once returned by the parser.
type ParsedScreen struct {
	Title           string
	ScreenCode      string
	ScreenShortCode string
	Deeplink        string
	Root            Component
	Queries         []ScreenQuery
}

// ParsedMicroappResult aggregates every block of one parse call. A new value
// replaces any previous result; it is never mutated.
type ParsedMicroappResult struct {
	Microapp *Microapp
	Styles   *AllStyles
	Queries  []Query
	Screens  []ParsedScreen
	Events   []Event
	Widgets  []WidgetDefinition
	Layouts  []LayoutDefinition
}

// HasData reports whether any block produced content.
func (r *ParsedMicroappResult) HasData() bool {
	if r == nil {
		return false
	}
	return r.Microapp != nil || r.Styles != nil || len(r.Queries) > 0 || len(r.Screens) > 0 ||
		len(r.Events) > 0 || len(r.Widgets) > 0 || len(r.Layouts) > 0
}

// Screen returns the parsed screen with the given code.
func (r *ParsedMicroappResult) Screen(code string) (ParsedScreen, bool) {
	for _, s := range r.Screens {
		if s.ScreenCode == code {
			return s, true
		}
	}
	return ParsedScreen{}, false
}
