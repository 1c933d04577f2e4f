package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pitabwire/sdui/model"
)

// MicroappStorage persists mapped microapps keyed by microapp code. Writes
// for the same code are last-write-wins. Implementations are safe for
// concurrent use.
type MicroappStorage interface {
	// SaveMapped stores data under data.MicroappCode, replacing any previous entry.
	SaveMapped(ctx context.Context, data *model.CachedMicroappData) error

	// LoadMapped returns the entry for code, or NOT_FOUND.
	LoadMapped(ctx context.Context, code string) (*model.CachedMicroappData, error)

	// GetAllCodes lists stored microapp codes in ascending order.
	GetAllCodes(ctx context.Context) ([]string, error)

	// Delete removes the entry for code. Deleting a missing code is not an error.
	Delete(ctx context.Context, code string) error

	// Contains reports whether an entry exists for code.
	Contains(ctx context.Context, code string) (bool, error)
}

// HealthChecker is implemented by storages backed by an external service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func notFound(code string) error {
	return model.NewNotFoundError(fmt.Sprintf("microapp %q not found", code))
}

func validateForSave(data *model.CachedMicroappData) error {
	if data == nil || data.MicroappCode == "" {
		return model.NewBadRequestError("microapp code is required")
	}
	return nil
}

// --- MemoryStorage ---

// MemoryStorage is an in-process MicroappStorage. Entries do not survive a
// restart; it suits tests and single-instance development.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string][]byte)}
}

// SaveMapped stores an encoded copy of data so later mutation by the caller
// does not leak into the store.
func (s *MemoryStorage) SaveMapped(_ context.Context, data *model.CachedMicroappData) error {
	if err := validateForSave(data); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[data.MicroappCode] = raw
	s.mu.Unlock()
	return nil
}

// LoadMapped decodes the stored entry for code.
func (s *MemoryStorage) LoadMapped(_ context.Context, code string) (*model.CachedMicroappData, error) {
	s.mu.RLock()
	raw, ok := s.entries[code]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(code)
	}
	return decode(code, raw)
}

// GetAllCodes lists stored codes.
func (s *MemoryStorage) GetAllCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.entries))
	for code := range s.entries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Delete removes code.
func (s *MemoryStorage) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	delete(s.entries, code)
	s.mu.Unlock()
	return nil
}

// Contains reports whether code is stored.
func (s *MemoryStorage) Contains(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	_, ok := s.entries[code]
	s.mu.RUnlock()
	return ok, nil
}

// HealthCheck always succeeds.
func (s *MemoryStorage) HealthCheck(context.Context) error { return nil }

// Len returns the number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// --- Instrumented ---

// Storage operation names reported to observers.
const (
	OpSave     = "save"
	OpLoad     = "load"
	OpList     = "list"
	OpDelete   = "delete"
	OpContains = "contains"
)

// Storage operation outcomes.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// OpObserver is told about every storage operation.
type OpObserver interface {
	OnStorageOp(op, status string, d time.Duration)
}

// Instrumented wraps a MicroappStorage and reports each call to an observer.
type Instrumented struct {
	next MicroappStorage
	obs  OpObserver
}

// NewInstrumented wraps next. A nil observer returns next unchanged.
func NewInstrumented(next MicroappStorage, obs OpObserver) MicroappStorage {
	if obs == nil {
		return next
	}
	return &Instrumented{next: next, obs: obs}
}

func (s *Instrumented) report(op string, start time.Time, err error) {
	status := StatusOK
	switch {
	case model.HasCode(err, model.ErrNotFound):
		status = StatusNotFound
	case err != nil:
		status = StatusError
	}
	s.obs.OnStorageOp(op, status, time.Since(start))
}

// SaveMapped implements MicroappStorage.
func (s *Instrumented) SaveMapped(ctx context.Context, data *model.CachedMicroappData) error {
	start := time.Now()
	err := s.next.SaveMapped(ctx, data)
	s.report(OpSave, start, err)
	return err
}

// LoadMapped implements MicroappStorage.
func (s *Instrumented) LoadMapped(ctx context.Context, code string) (*model.CachedMicroappData, error) {
	start := time.Now()
	data, err := s.next.LoadMapped(ctx, code)
	s.report(OpLoad, start, err)
	return data, err
}

// GetAllCodes implements MicroappStorage.
func (s *Instrumented) GetAllCodes(ctx context.Context) ([]string, error) {
	start := time.Now()
	codes, err := s.next.GetAllCodes(ctx)
	s.report(OpList, start, err)
	return codes, err
}

// Delete implements MicroappStorage.
func (s *Instrumented) Delete(ctx context.Context, code string) error {
	start := time.Now()
	err := s.next.Delete(ctx, code)
	s.report(OpDelete, start, err)
	return err
}

// Contains implements MicroappStorage.
func (s *Instrumented) Contains(ctx context.Context, code string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Contains(ctx, code)
	s.report(OpContains, start, err)
	return ok, err
}

// HealthCheck forwards to the wrapped storage when it supports health checks.
func (s *Instrumented) HealthCheck(ctx context.Context) error {
	if hc, ok := s.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
