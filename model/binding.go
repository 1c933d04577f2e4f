package model

// SourceType identifies which DataContext map a binding reads from.
type SourceType string

// Binding source types.
const (
	SourceJSONFile          SourceType = "JSON_FILE"
	SourceQueryResult       SourceType = "QUERY_RESULT"
	SourceScreenQueryResult SourceType = "SCREEN_QUERY_RESULT"
	SourceAppState          SourceType = "APP_STATE"
	SourceLocalVar          SourceType = "LOCAL_VAR"
)

// DataBinding is one ${...} macro found in a property value.
type DataBinding struct {
	SourceType   SourceType `json:"source_type"`
	SourceName   string     `json:"source_name"`
	Path         string     `json:"path,omitempty"`
	Expression   string     `json:"expression"`
	DefaultValue *string    `json:"default_value,omitempty"`
}
