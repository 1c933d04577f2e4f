package parser

import (
	"encoding/xml"
	"strings"

	"github.com/pitabwire/sdui/model"
)

// ParseMicroapp parses microapp.xml. Empty text yields nil.
func (p *Parser) ParseMicroapp(text string) (*model.Microapp, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "microapp"); err != nil {
		return nil, blockError(BlockMicroapp, err)
	}

	m := &model.Microapp{}
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "title":
			m.Title, err = readText(dec)
		case "code":
			m.Code, err = readText(dec)
		case "shortCode":
			m.ShortCode, err = readText(dec)
		case "deeplink":
			m.Deeplink, err = readText(dec)
		case "persistents":
			m.Persistents, err = readPersistents(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	if err != nil {
		return nil, blockError(BlockMicroapp, err)
	}
	return m, nil
}

func readPersistents(dec *xml.Decoder) ([]string, error) {
	var out []string
	err := eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local != "persistent" {
			return skip(dec)
		}
		name, err := readText(dec)
		if err != nil {
			return err
		}
		if name != "" {
			out = append(out, name)
		}
		return nil
	})
	return out, err
}

// ParseStyles parses resources/allStyles.xml. Empty text yields nil.
func (p *Parser) ParseStyles(text string) (*model.AllStyles, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "allStyles"); err != nil {
		return nil, blockError(BlockStyles, err)
	}

	s := &model.AllStyles{}
	err := eachChild(dec, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "textStyles":
			return eachNamed(dec, "textStyle", func() error {
				ts, err := readTextStyle(dec)
				if err == nil && ts.Code != "" {
					s.TextStyles = append(s.TextStyles, ts)
				}
				return err
			})
		case "colorStyles":
			return eachNamed(dec, "colorStyle", func() error {
				cs, err := readColorStyle(dec)
				if err == nil && cs.Code != "" {
					s.ColorStyles = append(s.ColorStyles, cs)
				}
				return err
			})
		case "alignmentStyles":
			return eachNamed(dec, "alignmentStyle", func() error {
				var as model.AlignmentStyle
				err := eachChild(dec, func(se xml.StartElement) error {
					if se.Name.Local != "code" {
						return skip(dec)
					}
					var err error
					as.Code, err = readText(dec)
					return err
				})
				if err == nil && as.Code != "" {
					s.AlignmentStyles = append(s.AlignmentStyles, as)
				}
				return err
			})
		case "paddingStyles":
			return eachNamed(dec, "paddingStyle", func() error {
				ps, err := readPaddingStyle(dec)
				if err == nil && ps.Code != "" {
					s.PaddingStyles = append(s.PaddingStyles, ps)
				}
				return err
			})
		case "roundStyles":
			return eachNamed(dec, "roundStyle", func() error {
				rs, err := readRoundStyle(dec)
				if err == nil && rs.Code != "" {
					s.RoundStyles = append(s.RoundStyles, rs)
				}
				return err
			})
		default:
			return skip(dec)
		}
	})
	if err != nil {
		return nil, blockError(BlockStyles, err)
	}
	return s, nil
}

// eachNamed calls fn for every child named tag and skips the others.
func eachNamed(dec *xml.Decoder, tag string, fn func() error) error {
	return eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local != tag {
			return skip(dec)
		}
		return fn()
	})
}

func readTextStyle(dec *xml.Decoder) (model.TextStyle, error) {
	var ts model.TextStyle
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			ts.Code, err = readText(dec)
		case "fontFamily":
			ts.FontFamily, err = readText(dec)
		case "fontSize":
			ts.FontSize, err = readInt(dec)
		case "fontWeight":
			ts.FontWeight, err = readText(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return ts, err
}

func readColorStyle(dec *xml.Decoder) (model.ColorStyle, error) {
	var cs model.ColorStyle
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			cs.Code, err = readText(dec)
		case "light":
			cs.Light, err = readColorTheme(dec)
		case "dark":
			cs.Dark, err = readColorTheme(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return cs, err
}

func readColorTheme(dec *xml.Decoder) (model.ColorTheme, error) {
	var ct model.ColorTheme
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "color":
			ct.Color, err = readText(dec)
		case "opacity":
			ct.Opacity, err = readInt(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return ct, err
}

func readPaddingStyle(dec *xml.Decoder) (model.PaddingStyle, error) {
	var ps model.PaddingStyle
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			ps.Code, err = readText(dec)
		case "left":
			ps.Left, err = readInt(dec)
		case "top":
			ps.Top, err = readInt(dec)
		case "right":
			ps.Right, err = readInt(dec)
		case "bottom":
			ps.Bottom, err = readInt(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return ps, err
}

func readRoundStyle(dec *xml.Decoder) (model.RoundStyle, error) {
	var rs model.RoundStyle
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			rs.Code, err = readText(dec)
		case "radius":
			rs.Radius, err = readInt(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return rs, err
}

// ParseQueries parses queries/allQueries.xml. Queries without a code are dropped.
func (p *Parser) ParseQueries(text string) ([]model.Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "queries"); err != nil {
		return nil, blockError(BlockQueries, err)
	}

	var out []model.Query
	err := eachNamed(dec, "query", func() error {
		var q model.Query
		err := eachChild(dec, func(se xml.StartElement) error {
			var err error
			switch se.Name.Local {
			case "code":
				q.Code, err = readText(dec)
			case "title":
				q.Title, err = readText(dec)
			case "endpoint":
				q.Endpoint, err = readText(dec)
			case "method":
				q.Method, err = readText(dec)
			case "properties":
				var kvs []keyValue
				kvs, err = readProperties(dec)
				q.Properties = propertyMap(kvs)
			default:
				err = skip(dec)
			}
			return err
		})
		if err != nil {
			return err
		}
		if q.Code != "" {
			out = append(out, q)
		}
		return nil
	})
	if err != nil {
		return nil, blockError(BlockQueries, err)
	}
	return out, nil
}

// ParseEvents parses events/allEvents.xml.
func (p *Parser) ParseEvents(text string) ([]model.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "events"); err != nil {
		return nil, blockError(BlockEvents, err)
	}
	events, err := readEvents(dec)
	if err != nil {
		return nil, blockError(BlockEvents, err)
	}
	return events, nil
}

// readEvents parses the children of an <events> element. It serves both the
// event registry and the events attached to screen nodes.
func readEvents(dec *xml.Decoder) ([]model.Event, error) {
	var out []model.Event
	err := eachNamed(dec, "event", func() error {
		var ev model.Event
		err := eachChild(dec, func(se xml.StartElement) error {
			var err error
			switch se.Name.Local {
			case "code":
				ev.Code, err = readText(dec)
			case "order":
				ev.Order, err = readInt(dec)
			case "eventActions":
				ev.Actions, err = readEventActions(dec)
			default:
				err = skip(dec)
			}
			return err
		})
		if err != nil {
			return err
		}
		if ev.Code != "" {
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

func readEventActions(dec *xml.Decoder) ([]model.EventAction, error) {
	var out []model.EventAction
	err := eachNamed(dec, "eventAction", func() error {
		var a model.EventAction
		err := eachChild(dec, func(se xml.StartElement) error {
			var err error
			switch se.Name.Local {
			case "code":
				a.Code, err = readText(dec)
			case "order":
				a.Order, err = readInt(dec)
			case "properties":
				var kvs []keyValue
				kvs, err = readProperties(dec)
				a.Properties = propertyMap(kvs)
			default:
				err = skip(dec)
			}
			return err
		})
		if err != nil {
			return err
		}
		if a.Code != "" {
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// ParseWidgets parses resources/allWidgets.xml.
func (p *Parser) ParseWidgets(text string) ([]model.WidgetDefinition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "widgets"); err != nil {
		return nil, blockError(BlockWidgets, err)
	}
	var out []model.WidgetDefinition
	err := eachNamed(dec, "widget", func() error {
		code, title, err := readCodeTitle(dec)
		if err == nil && code != "" {
			out = append(out, model.WidgetDefinition{Code: code, Title: title})
		}
		return err
	})
	if err != nil {
		return nil, blockError(BlockWidgets, err)
	}
	return out, nil
}

// ParseLayouts parses resources/allLayouts.xml.
func (p *Parser) ParseLayouts(text string) ([]model.LayoutDefinition, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "layouts"); err != nil {
		return nil, blockError(BlockLayouts, err)
	}
	var out []model.LayoutDefinition
	err := eachNamed(dec, "layout", func() error {
		code, title, err := readCodeTitle(dec)
		if err == nil && code != "" {
			out = append(out, model.LayoutDefinition{Code: code, Title: title})
		}
		return err
	})
	if err != nil {
		return nil, blockError(BlockLayouts, err)
	}
	return out, nil
}

func readCodeTitle(dec *xml.Decoder) (code, title string, err error) {
	err = eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "code":
			code, err = readText(dec)
		case "title":
			title, err = readText(dec)
		default:
			err = skip(dec)
		}
		return err
	})
	return code, title, err
}
