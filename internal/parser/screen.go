package parser

import (
	"encoding/xml"
	"strings"

	"go.uber.org/zap"

	"github.com/pitabwire/sdui/internal/binding"
	"github.com/pitabwire/sdui/model"
)

// ParseScreen parses one screens/*.xml document. A screen without a
// screenCode yields nil and no error. Layout nesting deeper than the
// configured maximum fails with RECURSION_LIMIT_EXCEEDED.
func (p *Parser) ParseScreen(text string) (*model.ParsedScreen, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := newDecoder(text)
	if err := openRoot(dec, "screen"); err != nil {
		return nil, blockError(BlockScreen, err)
	}

	s := &model.ParsedScreen{}
	err := eachChild(dec, func(se xml.StartElement) error {
		var err error
		switch se.Name.Local {
		case "title":
			s.Title, err = readText(dec)
		case "screenCode":
			s.ScreenCode, err = readText(dec)
		case "screenShortCode":
			s.ScreenShortCode, err = readText(dec)
		case "deeplink":
			s.Deeplink, err = readText(dec)
		case "screenQueries":
			s.Queries, err = readScreenQueries(dec)
		case "screenLayout":
			if s.Root != nil {
				p.logger.Debug("parser: ignoring extra root layout")
				return skip(dec)
			}
			var root *model.LayoutComponent
			root, err = p.parseLayout(dec, 1)
			if root != nil {
				s.Root = root
			}
		default:
			err = skip(dec)
		}
		return err
	})
	if err != nil {
		return nil, blockError(BlockScreen, err)
	}

	if s.ScreenCode == "" {
		return nil, nil
	}
	for i := range s.Queries {
		s.Queries[i].ScreenCode = s.ScreenCode
	}
	return s, nil
}

func readScreenQueries(dec *xml.Decoder) ([]model.ScreenQuery, error) {
	var out []model.ScreenQuery
	err := eachNamed(dec, "screenQuery", func() error {
		var q model.ScreenQuery
		err := eachChild(dec, func(se xml.StartElement) error {
			var err error
			switch se.Name.Local {
			case "code":
				q.Code, err = readText(dec)
			case "queryCode":
				q.QueryCode, err = readText(dec)
			case "order":
				q.Order, err = readInt(dec)
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
	return out, err
}

// parseLayout parses a <screenLayout> whose start tag was just read. depth is
// the nesting level of this layout, starting at 1 for the screen root. A
// layout without a code is consumed and dropped.
func (p *Parser) parseLayout(dec *xml.Decoder, depth int) (*model.LayoutComponent, error) {
	if depth > p.maxDepth {
		return nil, model.NewRecursionLimitError(depth, p.maxDepth)
	}

	l := &model.LayoutComponent{}
	err := eachChild(dec, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "screenLayout":
			child, err := p.parseLayout(dec, depth+1)
			if err != nil {
				return err
			}
			if child != nil {
				l.Children = append(l.Children, child)
			}
			return nil
		case "screenLayoutWidget":
			child, err := p.parseWidget(dec)
			if err != nil {
				return err
			}
			if child != nil {
				l.Children = append(l.Children, child)
			}
			return nil
		case "layoutCode":
			code, err := readText(dec)
			l.LayoutCode = model.LayoutKind(code)
			return err
		case "forIndexName":
			var err error
			l.ForIndexName, err = readText(dec)
			return err
		case "maxForIndex":
			var err error
			l.MaxForIndex, err = readText(dec)
			return err
		default:
			return readBaseField(dec, se, &l.ComponentBase)
		}
	})
	if err != nil {
		return nil, err
	}
	if l.Code == "" {
		p.logger.Debug("parser: dropping layout without code", zap.Int("depth", depth))
		return nil, nil
	}
	return l, nil
}

// parseWidget parses a <screenLayoutWidget> whose start tag was just read.
func (p *Parser) parseWidget(dec *xml.Decoder) (*model.WidgetComponent, error) {
	w := &model.WidgetComponent{}
	err := eachChild(dec, func(se xml.StartElement) error {
		if se.Name.Local == "widgetCode" {
			var err error
			w.WidgetCode, err = readText(dec)
			return err
		}
		return readBaseField(dec, se, &w.ComponentBase)
	})
	if err != nil {
		return nil, err
	}
	if w.Code == "" {
		p.logger.Debug("parser: dropping widget without code", zap.String("widget_code", w.WidgetCode))
		return nil, nil
	}
	return w, nil
}

// readBaseField fills one field shared by layouts and widgets, or skips the
// element when it is not one of them.
func readBaseField(dec *xml.Decoder, se xml.StartElement, b *model.ComponentBase) error {
	var err error
	switch se.Name.Local {
	case "title":
		b.Title, err = readText(dec)
	case "code":
		b.Code, err = readText(dec)
	case "index":
		b.Index, err = readInt(dec)
	case "properties":
		var kvs []keyValue
		kvs, err = readProperties(dec)
		for _, kv := range kvs {
			b.Properties = append(b.Properties, model.ComponentProperty{
				Code:     kv.code,
				RawValue: kv.value,
				Bindings: binding.ParseBindings(kv.value),
			})
		}
	case "styles":
		var kvs []keyValue
		kvs, err = readStyleRefs(dec)
		for _, kv := range kvs {
			b.Styles = append(b.Styles, model.ComponentStyle{Code: kv.code, Value: kv.value})
		}
	case "events":
		b.Events, err = readEvents(dec)
	default:
		err = skip(dec)
	}
	return err
}
