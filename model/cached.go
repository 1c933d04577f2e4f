package model

import "time"

// CachedComponentModel is the persisted form of a ComponentModel. Visual
// values are replaced by the style codes they came from; Kind selects which
// of the optional fields apply.
type CachedComponentModel struct {
	Kind           ModelKind `json:"kind"`
	Code           string    `json:"code"`
	Title          string    `json:"title,omitempty"`
	Index          int       `json:"index,omitempty"`
	Visible        bool      `json:"visible"`
	VisibilityCode string    `json:"visibility_code,omitempty"`
	Actions        []Action  `json:"actions,omitempty"`

	Width                    Dimension `json:"width"`
	Height                   Dimension `json:"height"`
	PaddingStyleCode         string    `json:"padding_style,omitempty"`
	RoundStyleCode           string    `json:"round_style,omitempty"`
	BackgroundColorStyleCode string    `json:"background_color_style,omitempty"`
	AlignmentStyleCode       string    `json:"alignment_style,omitempty"`

	TextStyleCode  string `json:"text_style,omitempty"`
	ColorStyleCode string `json:"color_style,omitempty"`

	Text          string   `json:"text,omitempty"`
	URL           string   `json:"url,omitempty"`
	Hint          string   `json:"hint,omitempty"`
	Value         string   `json:"value,omitempty"`
	Variable      string   `json:"variable,omitempty"`
	InputType     string   `json:"input_type,omitempty"`
	ChangeActions []Action `json:"change_actions,omitempty"`

	LayoutKind   LayoutKind             `json:"layout_kind,omitempty"`
	ForIndexName string                 `json:"for_index_name,omitempty"`
	MaxForIndex  string                 `json:"max_for_index,omitempty"`
	Children     []CachedComponentModel `json:"children,omitempty"`

	ResolvedMaxForIndex *int `json:"resolved_max_for_index,omitempty"`
}

// CachedScreen is one mapped screen in persisted form.
type CachedScreen struct {
	ScreenCode      string                `json:"screen_code"`
	Title           string                `json:"title,omitempty"`
	ScreenShortCode string                `json:"screen_short_code,omitempty"`
	Deeplink        string                `json:"deeplink,omitempty"`
	Queries         []ScreenQuery         `json:"queries,omitempty"`
	Root            *CachedComponentModel `json:"root,omitempty"`
}

// CachedMicroappData is everything needed to render a microapp without
// reparsing its XML. Entries are keyed by MicroappCode.
type CachedMicroappData struct {
	MicroappCode string             `json:"microapp_code"`
	Microapp     *Microapp          `json:"microapp,omitempty"`
	Styles       *AllStyles         `json:"styles,omitempty"`
	Queries      []Query            `json:"queries,omitempty"`
	Events       []Event            `json:"events,omitempty"`
	Widgets      []WidgetDefinition `json:"widgets,omitempty"`
	Layouts      []LayoutDefinition `json:"layouts,omitempty"`
	Screens      []CachedScreen     `json:"screens"`
	CachedAt     time.Time          `json:"cached_at"`
}

// Screen returns the cached screen with the given code.
func (d *CachedMicroappData) Screen(code string) (CachedScreen, bool) {
	for _, s := range d.Screens {
		if s.ScreenCode == code {
			return s, true
		}
	}
	return CachedScreen{}, false
}

// ScreenCodes lists screen codes in stored order.
func (d *CachedMicroappData) ScreenCodes() []string {
	codes := make([]string, 0, len(d.Screens))
	for _, s := range d.Screens {
		codes = append(codes, s.ScreenCode)
	}
	return codes
}
