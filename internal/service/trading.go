package service

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spimexhq/oilpulse/internal/domain/models"
	"github.com/spimexhq/oilpulse/internal/logger"
	"github.com/spimexhq/oilpulse/internal/storage"
)

// The exchange publishes the new bulletin early afternoon; cached answers from
// before that moment are stale, so the whole keyspace is dropped once a day.
const (
	cacheKeyPrefix   = "trading:"
	cacheResetHour   = 14
	cacheResetMinute = 11
)

// TradingService answers read-side queries over ingested records, with an
// optional Redis cache in front of the repository.
type TradingService interface {
	GetLastTradingDates(ctx context.Context, limit int) ([]time.Time, error)
	GetDynamics(ctx context.Context, filter storage.DynamicsFilter) ([]models.StoredTradingResult, error)
	GetTradingResults(ctx context.Context, filter storage.ResultsFilter) ([]models.StoredTradingResult, error)
}

// resultCache is the slice of the Redis client the service touches; satisfied
// by *redis.Client.
type resultCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type tradingService struct {
	repo  storage.TradingRepository
	cache resultCache // nil disables caching
	ttl   time.Duration

	mu        sync.Mutex
	lastReset time.Time

	now func() time.Time // swapped in tests
}

// NewTradingService builds the read-side service. cache may be nil; every
// query then goes straight to the repository.
func NewTradingService(repo storage.TradingRepository, cache *redis.Client, ttl time.Duration) TradingService {
	s := &tradingService{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
	if cache != nil {
		s.cache = cache
	}
	return s
}

func (s *tradingService) GetLastTradingDates(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 10
	}
	s.clearCacheIfNeeded(ctx)

	key := cacheKey("last_trading_dates", map[string]string{"limit": strconv.Itoa(limit)})
	var dates []time.Time
	if s.getCached(ctx, key, &dates) {
		return dates, nil
	}

	dates, err := s.repo.GetLastTradingDates(limit)
	if err != nil {
		return nil, err
	}
	s.setCached(ctx, key, dates)
	return dates, nil
}

func (s *tradingService) GetDynamics(ctx context.Context, filter storage.DynamicsFilter) ([]models.StoredTradingResult, error) {
	s.clearCacheIfNeeded(ctx)

	key := cacheKey("dynamics", map[string]string{
		"start_date":        filter.StartDate.Format("2006-01-02"),
		"end_date":          filter.EndDate.Format("2006-01-02"),
		"oil_id":            filter.OilID,
		"delivery_type_id":  filter.DeliveryTypeID,
		"delivery_basis_id": filter.DeliveryBasisID,
	})
	var results []models.StoredTradingResult
	if s.getCached(ctx, key, &results) {
		return results, nil
	}

	results, err := s.repo.GetDynamics(filter)
	if err != nil {
		return nil, err
	}
	s.setCached(ctx, key, results)
	return results, nil
}

func (s *tradingService) GetTradingResults(ctx context.Context, filter storage.ResultsFilter) ([]models.StoredTradingResult, error) {
	s.clearCacheIfNeeded(ctx)

	key := cacheKey("trading_results", map[string]string{
		"oil_id":            filter.OilID,
		"delivery_type_id":  filter.DeliveryTypeID,
		"delivery_basis_id": filter.DeliveryBasisID,
		"limit":             strconv.Itoa(filter.Limit),
	})
	var results []models.StoredTradingResult
	if s.getCached(ctx, key, &results) {
		return results, nil
	}

	results, err := s.repo.GetTradingResults(filter)
	if err != nil {
		return nil, err
	}
	s.setCached(ctx, key, results)
	return results, nil
}

// cacheKey builds "trading:<method>:<k>_<v>_..." with params in sorted order,
// so equivalent queries share an entry.
func cacheKey(method string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(cacheKeyPrefix)
	b.WriteString(method)
	for _, k := range keys {
		b.WriteString(":")
		b.WriteString(k)
		b.WriteString("_")
		b.WriteString(params[k])
	}
	return b.String()
}

// getCached reports whether key was found and decoded into out. Cache errors
// degrade to a repository read, never fail the request.
func (s *tradingService) getCached(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn().Str("key", key).Err(err).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.L().Warn().Str("key", key).Err(err).Msg("cache entry undecodable")
		return false
	}
	return true
}

func (s *tradingService) setCached(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.L().Warn().Str("key", key).Err(err).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
		logger.L().Warn().Str("key", key).Err(err).Msg("cache write failed")
	}
}

// clearCacheIfNeeded drops the whole trading keyspace at most once per day,
// at or after the daily publication cutoff.
func (s *tradingService) clearCacheIfNeeded(ctx context.Context) {
	if s.cache == nil {
		return
	}
	now := s.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cacheResetHour, cacheResetMinute, 0, 0, now.Location())
	if now.Before(cutoff) {
		return
	}

	s.mu.Lock()
	already := !s.lastReset.Before(cutoff)
	if !already {
		s.lastReset = now
	}
	s.mu.Unlock()
	if already {
		return
	}

	keys, err := s.cache.Keys(ctx, cacheKeyPrefix+"*").Result()
	if err != nil {
		logger.L().Warn().Err(err).Msg("cache reset scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn().Err(err).Msg("cache reset delete failed")
		return
	}
	logger.L().Info().Int("keys", len(keys)).Msg("daily cache reset")
}
