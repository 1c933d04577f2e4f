// Package parser turns the XML documents of a microapp package into the
// typed document tree in package model.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/sdui/model"
)

// DefaultMaxDepth is the deepest layout nesting accepted by default.
const DefaultMaxDepth = 30

// Block names, as reported to observers and in MALFORMED_BLOCK errors.
const (
	BlockMicroapp = "microapp"
	BlockStyles   = "styles"
	BlockQueries  = "queries"
	BlockEvents   = "events"
	BlockWidgets  = "widgets"
	BlockLayouts  = "layouts"
	BlockScreen   = "screen"
)

// Block outcomes.
const (
	StatusOK        = "ok"
	StatusAbsent    = "absent"
	StatusMalformed = "malformed"
	StatusDropped   = "dropped"
	StatusRecursion = "recursion_limit"
)

// BlockEvent describes the outcome of parsing one block.
type BlockEvent struct {
	Block    string
	Name     string
	Status   string
	Duration time.Duration
	Err      error
}

// BlockObserver receives one event per block parsed by Parse.
type BlockObserver interface {
	OnBlockParsed(event BlockEvent)
}

// Document is one named XML file, e.g. a screen.
type Document struct {
	Name string
	Text string
}

// Sources holds the raw text of every logical file of a microapp package.
// Missing files are empty strings.
type Sources struct {
	Microapp string
	Styles   string
	Queries  string
	Events   string
	Widgets  string
	Layouts  string
	Screens  []Document
}

// Parser parses microapp XML. It holds no per-call state and is safe for
// concurrent use.
type Parser struct {
	logger    *zap.Logger
	maxDepth  int
	observers []BlockObserver
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for contained block failures.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxDepth sets the layout nesting ceiling. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// WithObserver adds a block observer.
func WithObserver(obs BlockObserver) Option {
	return func(p *Parser) { p.observers = append(p.observers, obs) }
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses every block of a package. A malformed block is logged and left
// empty while the others still parse; a recursion limit failure aborts the
// call. Parse fails with MISSING_REQUIRED_DATA when nothing usable was found.
func (p *Parser) Parse(src Sources) (*model.ParsedMicroappResult, error) {
	var err error
	res := &model.ParsedMicroappResult{}

	if res.Microapp, err = parseBlock(p, BlockMicroapp, src.Microapp, p.ParseMicroapp); err != nil {
		return nil, err
	}
	if res.Styles, err = parseBlock(p, BlockStyles, src.Styles, p.ParseStyles); err != nil {
		return nil, err
	}
	if res.Queries, err = parseBlock(p, BlockQueries, src.Queries, p.ParseQueries); err != nil {
		return nil, err
	}
	if res.Events, err = parseBlock(p, BlockEvents, src.Events, p.ParseEvents); err != nil {
		return nil, err
	}
	if res.Widgets, err = parseBlock(p, BlockWidgets, src.Widgets, p.ParseWidgets); err != nil {
		return nil, err
	}
	if res.Layouts, err = parseBlock(p, BlockLayouts, src.Layouts, p.ParseLayouts); err != nil {
		return nil, err
	}
	if res.Screens, err = p.parseScreens(src.Screens); err != nil {
		return nil, err
	}

	if !res.HasData() {
		return nil, model.NewMissingRequiredDataError("microapp package produced no usable content")
	}
	return res, nil
}

// ParseTemplate parses a template package, which must yield at least one
// screen and a style registry.
func (p *Parser) ParseTemplate(src Sources) (*model.ParsedMicroappResult, error) {
	res, err := p.Parse(src)
	if err != nil {
		return nil, err
	}
	if len(res.Screens) == 0 {
		return nil, model.NewMissingRequiredDataError("template has no screens")
	}
	if res.Styles == nil {
		return nil, model.NewMissingRequiredDataError("template has no style registry")
	}
	return res, nil
}

func (p *Parser) parseScreens(docs []Document) ([]model.ParsedScreen, error) {
	var screens []model.ParsedScreen
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		start := time.Now()
		if strings.TrimSpace(doc.Text) == "" {
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusAbsent})
			continue
		}

		s, err := p.ParseScreen(doc.Text)
		elapsed := time.Since(start)
		switch {
		case model.HasCode(err, model.ErrRecursionLimitExceeded):
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusRecursion, Duration: elapsed, Err: err})
			return nil, fmt.Errorf("screen %s: %w", doc.Name, err)
		case err != nil:
			p.logger.Warn("parser: screen malformed, skipping",
				zap.String("document", doc.Name), zap.Error(err))
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusMalformed, Duration: elapsed, Err: err})
		case s == nil:
			p.logger.Warn("parser: screen has no screenCode, dropping", zap.String("document", doc.Name))
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusDropped, Duration: elapsed})
		case seen[s.ScreenCode]:
			p.logger.Warn("parser: duplicate screenCode, keeping first",
				zap.String("document", doc.Name), zap.String("screen_code", s.ScreenCode))
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusDropped, Duration: elapsed})
		default:
			seen[s.ScreenCode] = true
			screens = append(screens, *s)
			p.notify(BlockEvent{Block: BlockScreen, Name: doc.Name, Status: StatusOK, Duration: elapsed})
		}
	}
	return screens, nil
}

// parseBlock runs one block parser with failure containment. Only recursion
// limit failures are returned.
func parseBlock[T any](p *Parser, block, text string, parse func(string) (T, error)) (T, error) {
	var zero T
	if strings.TrimSpace(text) == "" {
		p.notify(BlockEvent{Block: block, Status: StatusAbsent})
		return zero, nil
	}

	start := time.Now()
	v, err := parse(text)
	elapsed := time.Since(start)
	if err != nil {
		if model.HasCode(err, model.ErrRecursionLimitExceeded) {
			p.notify(BlockEvent{Block: block, Status: StatusRecursion, Duration: elapsed, Err: err})
			return zero, err
		}
		p.logger.Warn("parser: block malformed, using empty default",
			zap.String("block", block), zap.Error(err))
		p.notify(BlockEvent{Block: block, Status: StatusMalformed, Duration: elapsed, Err: err})
		return zero, nil
	}
	p.notify(BlockEvent{Block: block, Status: StatusOK, Duration: elapsed})
	return v, nil
}

func (p *Parser) notify(ev BlockEvent) {
	for _, obs := range p.observers {
		obs.OnBlockParsed(ev)
	}
}

// blockError wraps a decoding failure as MALFORMED_BLOCK. Errors that already
// carry a code pass through unchanged.
func blockError(block string, err error) error {
	var ee *model.ErrorEnvelope
	if errors.As(err, &ee) {
		return err
	}
	return model.NewMalformedBlockError(block, err)
}
