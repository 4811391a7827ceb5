package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"urlshortener/internal/codegen"
	"urlshortener/internal/model"
	"urlshortener/internal/repository"
	"urlshortener/internal/urlnorm"
	"urlshortener/pkg/logger"
)

// maxCreateAttempts bounds the allocate/generate/insert retry loop. Each
// retry burns a fresh sequence number, so exhausting this means something is
// systematically wrong, not that the keyspace is tight.
const maxCreateAttempts = 5

// Store is the durable mapping table. Its two uniqueness constraints
// (url_hash, short_code) are the only mutual exclusion the dedup path uses.
type Store interface {
	GetByHash(ctx context.Context, hash string) (*model.URLMapping, error)
	GetByCode(ctx context.Context, code string) (*model.URLMapping, error)
	Create(ctx context.Context, m *model.URLMapping) error
	IncrementClicks(ctx context.Context, code string, delta int64) error
	List(ctx context.Context, offset, limit int) ([]model.URLMapping, error)
}

// Sequencer hands out globally increasing integers, one per new mapping.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (uint64, error)
}

// LookupCache serves the redirect hot path. Misses and errors are equivalent.
type LookupCache interface {
	GetLongURL(ctx context.Context, code string) (string, bool)
	SetLongURL(ctx context.Context, code, longURL string)
}

// ClickPublisher enqueues a click event, best-effort.
type ClickPublisher interface {
	Publish(ctx context.Context, shortCode string)
}

type Service struct {
	store  Store
	seq    Sequencer
	cache  LookupCache
	clicks ClickPublisher // nil selects the degraded direct-increment mode
	gen    codegen.Generator
}

func NewService(store Store, seq Sequencer, cache LookupCache, clicks ClickPublisher, gen codegen.Generator) *Service {
	return &Service{store: store, seq: seq, cache: cache, clicks: clicks, gen: gen}
}

// Shorten dedups longURL to exactly one mapping. Equivalent spellings (case,
// default ports, dot segments) share a hash and therefore a code; the stored
// and returned long URL is the submitted string, not the canonical form.
//
// Uniqueness races are resolved after the fact: a duplicate-key insert sends
// the loop back to the hash lookup, which either returns the concurrent
// winner's mapping or, for a short-code collision, retries with a fresh
// sequence number.
func (s *Service) Shorten(ctx context.Context, longURL string) (*model.URLMapping, error) {
	normalized, err := urlnorm.Normalize(longURL)
	if err != nil {
		return nil, err
	}
	hash := urlnorm.Hash(normalized)

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		existing, err := s.store.GetByHash(ctx, hash)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}

		seq, err := s.seq.NextSequence(ctx, repository.SequenceName)
		if err != nil {
			return nil, fmt.Errorf("allocate sequence: %w", err)
		}

		m := &model.URLMapping{
			LongURL:   longURL,
			URLHash:   hash,
			ShortCode: s.gen.Generate(seq),
		}
		err = s.store.Create(ctx, m)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("insert mapping: %w", err)
		}
		logger.Warn().Str("code", m.ShortCode).Int("attempt", attempt+1).Msg("duplicate key on insert, retrying")
	}

	return nil, fmt.Errorf("gave up after %d attempts to insert a unique mapping", maxCreateAttempts)
}

// Expand resolves a short code.
//
// With recordClick=false (the stats path) it always reads the authoritative
// store, since cached entries carry no click count. With recordClick=true
// (the redirect path) it is cache-aside with a bounded TTL, and emits a click
// event the response never waits for.
func (s *Service) Expand(ctx context.Context, code string, recordClick bool) (*model.URLMapping, error) {
	if !recordClick {
		return s.store.GetByCode(ctx, code)
	}

	if longURL, ok := s.cache.GetLongURL(ctx, code); ok {
		s.recordClick(ctx, code)
		return &model.URLMapping{ShortCode: code, LongURL: longURL}, nil
	}

	m, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cache.SetLongURL(ctx, code, m.LongURL)
	s.recordClick(ctx, code)
	return m, nil
}

// Stats returns the authoritative mapping including the current click count.
func (s *Service) Stats(ctx context.Context, code string) (*model.URLMapping, error) {
	return s.Expand(ctx, code, false)
}

// recordClick is fire-and-forget. With a publisher configured the event goes
// to the stream for batched aggregation; without one (Redis disabled) the
// count is applied directly off the request goroutine.
func (s *Service) recordClick(ctx context.Context, code string) {
	if s.clicks != nil {
		s.clicks.Publish(ctx, code)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.IncrementClicks(ctx, code, 1); err != nil {
			logger.Error().Err(err).Str("code", code).Msg("direct click increment failed")
		}
	}()
}

func (s *Service) List(ctx context.Context, page, limit int) ([]model.URLMapping, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit
	return s.store.List(ctx, offset, limit)
}
