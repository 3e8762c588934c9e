package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	pkgcache "SignalDeck/pkg/cache"
	applogger "SignalDeck/pkg/logger"
)

// State keys are schema versioned. The feedback log is on v2 because v1
// stored verdicts as bare strings without timestamps.
var (
	keyLanguage       = pkgcache.VersionedKey(1, "lang")
	keyLastGeneration = pkgcache.VersionedKey(1, "cooldown", "last_generation")
	keyFeedbackLog    = pkgcache.VersionedKey(2, "feedback", "log")

	lockFeedbackLog = keyFeedbackLog + "/lock"
)

const (
	defaultLanguage = "uk"
	appendLockTTL   = 5 * time.Second
)

// CacheStateStore implements StateStore over the key-value cache layer.
type CacheStateStore struct {
	cache  pkgcache.Service
	logger *applogger.Logger
}

// NewCacheStateStore creates a state store backed by the given cache service.
func NewCacheStateStore(cache pkgcache.Service, logger *applogger.Logger) domrepo.StateStore {
	return &CacheStateStore{cache: cache, logger: logger}
}

// Language returns the preferred language, falling back to the default when
// the stored value is missing or unreadable.
func (s *CacheStateStore) Language(ctx context.Context) (string, error) {
	var lang string
	if err := s.cache.Get(ctx, keyLanguage, &lang); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return defaultLanguage, nil
		}
		s.logger.Warn("state: language unreadable, using default", applogger.Error(err))
		return defaultLanguage, nil
	}
	if lang == "" {
		return defaultLanguage, nil
	}
	return lang, nil
}

// SetLanguage persists the preferred language.
func (s *CacheStateStore) SetLanguage(ctx context.Context, lang string) error {
	if err := s.cache.Set(ctx, keyLanguage, lang, 0); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// LastGeneration returns the last successful generation instant. A missing or
// corrupt value decodes to the zero time so cooldown fails open.
func (s *CacheStateStore) LastGeneration(ctx context.Context) (time.Time, error) {
	var stamp string
	if err := s.cache.Get(ctx, keyLastGeneration, &stamp); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("get last generation: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		s.logger.Warn("state: last generation unreadable, treating as unset",
			applogger.String("value", stamp),
			applogger.Error(err),
		)
		return time.Time{}, nil
	}
	return t, nil
}

// SetLastGeneration persists the last successful generation instant.
func (s *CacheStateStore) SetLastGeneration(ctx context.Context, t time.Time) error {
	if err := s.cache.Set(ctx, keyLastGeneration, t.UTC().Format(time.RFC3339Nano), 0); err != nil {
		return fmt.Errorf("set last generation: %w", err)
	}
	return nil
}

// FeedbackLog returns the full append-only feedback log. A corrupt log is
// reported as an error so callers decide their own fallback.
func (s *CacheStateStore) FeedbackLog(ctx context.Context) ([]models.FeedbackRecord, error) {
	var log []models.FeedbackRecord
	if err := s.cache.Get(ctx, keyFeedbackLog, &log); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get feedback log: %w", err)
	}
	return log, nil
}

// AppendFeedback appends one record under a short lock so concurrent appends
// do not lose entries. Duplicate signal ids are kept; readers dedupe.
func (s *CacheStateStore) AppendFeedback(ctx context.Context, rec models.FeedbackRecord) error {
	acquired, err := s.cache.TryLock(ctx, lockFeedbackLog, appendLockTTL)
	if err != nil {
		return fmt.Errorf("feedback lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("feedback log busy")
	}
	defer func() {
		if uerr := s.cache.Unlock(ctx, lockFeedbackLog); uerr != nil {
			s.logger.Warn("state: feedback unlock", applogger.Error(uerr))
		}
	}()

	log, err := s.FeedbackLog(ctx)
	if err != nil {
		// A corrupt log must not block new feedback. Start over rather
		// than lose the record.
		s.logger.Error("state: feedback log unreadable, restarting log", applogger.Error(err))
		log = nil
	}
	log = append(log, rec)

	if err := s.cache.Set(ctx, keyFeedbackLog, log, 0); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// Health checks the backing store.
func (s *CacheStateStore) Health(ctx context.Context) error {
	if _, err := s.cache.Exists(ctx, keyLanguage); err != nil {
		return fmt.Errorf("state store health: %w", err)
	}
	return nil
}
