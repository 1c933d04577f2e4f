package microapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/sdui/internal/binding"
	"github.com/pitabwire/sdui/internal/cache"
	"github.com/pitabwire/sdui/internal/mapper"
	"github.com/pitabwire/sdui/internal/observability"
	"github.com/pitabwire/sdui/internal/openapi"
	"github.com/pitabwire/sdui/internal/parser"
	"github.com/pitabwire/sdui/internal/style"
	"github.com/pitabwire/sdui/model"
)

// Import outcomes reported to the Recorder.
const (
	ImportOK       = "ok"
	ImportRejected = "rejected"
	ImportFailed   = "failed"
)

// Recorder receives service-level measurements. *observability.Metrics
// satisfies it.
type Recorder interface {
	RecordImport(status string)
	RecordRender(d time.Duration)
	RecordBindings(total, resolved int)
	RecordQueryIssues(microapp string, count int)
	SetMicroappsStored(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordImport(string)           {}
func (nopRecorder) RecordRender(time.Duration)    {}
func (nopRecorder) RecordBindings(int, int)       {}
func (nopRecorder) RecordQueryIssues(string, int) {}
func (nopRecorder) SetMicroappsStored(int)        {}

// Service imports microapp packages, persists their mapped form and renders
// screens. It is safe for concurrent use.
type Service struct {
	storage  cache.MicroappStorage
	parser   *parser.Parser
	mapper   *mapper.Mapper
	engine   *binding.Engine
	queries  *openapi.Index
	strict   bool
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithMapper replaces the default mapper.
func WithMapper(m *mapper.Mapper) Option {
	return func(s *Service) { s.mapper = m }
}

// WithEngine replaces the default binding engine.
func WithEngine(e *binding.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithQueryIndex checks every imported query against idx. In strict mode a
// query that fails the check rejects the import; otherwise it is logged.
func WithQueryIndex(idx *openapi.Index, strict bool) Option {
	return func(s *Service) {
		s.queries = idx
		s.strict = strict
	}
}

// WithRecorder sets the measurement sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the time source used for CachedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over storage.
func NewService(storage cache.MicroappStorage, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = parser.New(parser.WithLogger(s.logger))
	}
	if s.mapper == nil {
		s.mapper = mapper.New(mapper.WithLogger(s.logger))
	}
	if s.engine == nil {
		s.engine = binding.NewEngine(binding.WithLogger(s.logger))
	}
	return s
}

// Import parses a package, maps every screen and stores the result under
// the code declared in microapp.xml.
func (s *Service) Import(ctx context.Context, p FileProvider) (*model.CachedMicroappData, error) {
	ctx, span := observability.StartSpan(ctx, "microapp.import")
	data, err := s.importParsed(ctx, "", func() (*model.ParsedMicroappResult, error) {
		return s.parser.Parse(Sources(p))
	})
	observability.EndSpanWithError(span, err)
	return data, err
}

// ImportTemplate imports a template package. Templates need a style registry
// and at least one screen; code names the stored entry and falls back to the
// template's own microapp code when empty.
func (s *Service) ImportTemplate(ctx context.Context, code string, p FileProvider) (*model.CachedMicroappData, error) {
	ctx, span := observability.StartSpan(ctx, "microapp.import_template",
		observability.AttrMicroappCode.String(code))
	data, err := s.importParsed(ctx, code, func() (*model.ParsedMicroappResult, error) {
		src, err := TemplateSources(p)
		if err != nil {
			return nil, model.NewMissingRequiredDataError(err.Error())
		}
		return s.parser.ParseTemplate(src)
	})
	observability.EndSpanWithError(span, err)
	return data, err
}

func (s *Service) importParsed(ctx context.Context, code string, parse func() (*model.ParsedMicroappResult, error)) (*model.CachedMicroappData, error) {
	log := observability.RequestLogger(ctx, s.logger)

	parsed, err := parse()
	if err != nil {
		s.recorder.RecordImport(ImportRejected)
		log.Warn("microapp: package rejected", zap.Error(err))
		return nil, err
	}

	if code == "" && parsed.Microapp != nil {
		code = parsed.Microapp.Code
	}
	if code == "" {
		s.recorder.RecordImport(ImportRejected)
		return nil, model.NewBadRequestError("microapp has no code")
	}

	if err := s.checkQueries(ctx, code, parsed.Queries); err != nil {
		s.recorder.RecordImport(ImportRejected)
		return nil, err
	}

	reg := style.NewRegistry(parsed.Styles)
	mapped := make([]cache.MappedScreen, 0, len(parsed.Screens))
	for _, screen := range parsed.Screens {
		root := s.mapper.MapScreen(screen, reg)
		if root == nil {
			log.Warn("microapp: screen root mapped to nothing",
				zap.String("microapp", code), zap.String("screen", screen.ScreenCode))
		}
		mapped = append(mapped, cache.MappedScreen{Screen: screen, Root: root})
	}

	data, err := cache.FromParsed(code, parsed, mapped, s.now())
	if err != nil {
		s.recorder.RecordImport(ImportFailed)
		return nil, fmt.Errorf("microapp %q: %w", code, err)
	}
	if err := s.storage.SaveMapped(ctx, data); err != nil {
		s.recorder.RecordImport(ImportFailed)
		return nil, fmt.Errorf("microapp %q: saving: %w", code, err)
	}

	s.recorder.RecordImport(ImportOK)
	s.refreshStored(ctx)
	log.Info("microapp: imported",
		zap.String("microapp", code),
		zap.Int("screens", len(data.Screens)),
		zap.Int("queries", len(data.Queries)))
	return data, nil
}

// checkQueries validates queries against the configured OpenAPI index.
func (s *Service) checkQueries(ctx context.Context, code string, queries []model.Query) error {
	if s.queries == nil || s.queries.Len() == 0 || len(queries) == 0 {
		return nil
	}

	var details []model.FieldError
	failed := 0
	for _, q := range queries {
		issues := s.queries.ValidateQuery(q)
		if len(issues) == 0 {
			continue
		}
		failed++
		for _, issue := range issues {
			details = append(details, model.FieldError{
				Field:   "queries." + q.Code + "." + issue.Field,
				Code:    "INVALID_QUERY",
				Message: issue.Message,
			})
		}
	}
	if failed == 0 {
		return nil
	}

	s.recorder.RecordQueryIssues(code, failed)
	if s.strict {
		return model.NewValidationError(details)
	}
	log := observability.RequestLogger(ctx, s.logger)
	for _, d := range details {
		log.Warn("microapp: query does not match any known operation",
			zap.String("microapp", code), zap.String("field", d.Field), zap.String("reason", d.Message))
	}
	return nil
}

// Get returns the stored form of a microapp.
func (s *Service) Get(ctx context.Context, code string) (*model.CachedMicroappData, error) {
	return s.storage.LoadMapped(ctx, code)
}

// Loaded is a stored microapp rehydrated into render trees with styles
// resolved against its own registry.
type Loaded struct {
	Data    *model.CachedMicroappData
	Styles  *style.Registry
	Screens map[string]model.ComponentModel
}

// Load rehydrates every screen of a stored microapp.
func (s *Service) Load(ctx context.Context, code string) (*Loaded, error) {
	ctx, span := observability.StartSpan(ctx, "microapp.load",
		observability.AttrMicroappCode.String(code))
	loaded, err := s.load(ctx, code)
	observability.EndSpanWithError(span, err)
	return loaded, err
}

func (s *Service) load(ctx context.Context, code string) (*Loaded, error) {
	data, err := s.storage.LoadMapped(ctx, code)
	if err != nil {
		return nil, err
	}
	screens, err := cache.ToScreens(data)
	if err != nil {
		return nil, fmt.Errorf("microapp %q: %w", code, err)
	}
	reg := style.NewRegistry(data.Styles)
	for sc, tree := range screens {
		screens[sc] = mapper.ResolveStyles(tree, reg)
	}
	return &Loaded{Data: data, Styles: reg, Screens: screens}, nil
}

// Rendered is one screen bound against a DataContext.
type Rendered struct {
	MicroappCode string
	Screen       model.CachedScreen
	Root         model.ComponentModel
	Styles       *model.AllStyles
	Stats        binding.Stats
}

// Render loads one screen, binds it against dc and resolves its styles.
// A nil dc binds against an empty context.
func (s *Service) Render(ctx context.Context, code, screenCode string, dc *model.DataContext) (*Rendered, error) {
	ctx, span := observability.StartSpan(ctx, "microapp.render",
		observability.AttrMicroappCode.String(code),
		observability.AttrScreenCode.String(screenCode))
	start := time.Now()

	out, err := s.render(ctx, code, screenCode, dc)
	if err == nil {
		span.SetAttributes(
			observability.AttrBindings.Int(out.Stats.Total),
			observability.AttrUnresolved.Int(out.Stats.Unresolved()))
		s.recorder.RecordRender(time.Since(start))
	}
	observability.EndSpanWithError(span, err)
	return out, err
}

func (s *Service) render(ctx context.Context, code, screenCode string, dc *model.DataContext) (*Rendered, error) {
	data, err := s.storage.LoadMapped(ctx, code)
	if err != nil {
		return nil, err
	}
	cs, ok := data.Screen(screenCode)
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("screen %q not found in microapp %q", screenCode, code))
	}
	tree, err := cache.ToScreen(cs)
	if err != nil {
		return nil, fmt.Errorf("microapp %q: %w", code, err)
	}
	if dc == nil {
		dc = model.NewDataContext()
	}

	out := &Rendered{MicroappCode: code, Screen: cs, Styles: data.Styles}
	if tree != nil {
		bound, stats := s.engine.ApplyWithStats(tree, dc)
		out.Root = mapper.ResolveStyles(bound, style.NewRegistry(data.Styles))
		out.Stats = stats
		s.recorder.RecordBindings(stats.Total, stats.Resolved)
		if stats.Unresolved() > 0 {
			observability.RequestLogger(ctx, s.logger).Debug("microapp: unresolved bindings left literal",
				zap.String("microapp", code),
				zap.String("screen", screenCode),
				zap.Int("unresolved", stats.Unresolved()))
		}
	}
	return out, nil
}

// List returns the codes of every stored microapp.
func (s *Service) List(ctx context.Context) ([]string, error) {
	codes, err := s.storage.GetAllCodes(ctx)
	if err != nil {
		return nil, err
	}
	s.recorder.SetMicroappsStored(len(codes))
	return codes, nil
}

// Delete removes a stored microapp. Deleting an unknown code is NOT_FOUND.
func (s *Service) Delete(ctx context.Context, code string) error {
	ok, err := s.storage.Contains(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewNotFoundError(fmt.Sprintf("microapp %q not found", code))
	}
	if err := s.storage.Delete(ctx, code); err != nil {
		return err
	}
	s.refreshStored(ctx)
	observability.RequestLogger(ctx, s.logger).Info("microapp: deleted", zap.String("microapp", code))
	return nil
}

func (s *Service) refreshStored(ctx context.Context) {
	codes, err := s.storage.GetAllCodes(ctx)
	if err != nil {
		s.logger.Warn("microapp: counting stored microapps", zap.Error(err))
		return
	}
	s.recorder.SetMicroappsStored(len(codes))
}
