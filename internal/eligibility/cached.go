package eligibility

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache stores serialized verdicts. *cache.Redis satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedScorer memoizes verdicts of a slower scorer. Cache failures are
// logged and never fail the evaluation.
type CachedScorer struct {
	next  Scorer
	cache Cache
	ttl   time.Duration
	log   *logrus.Logger
}

// NewCachedScorer wraps next with a verdict cache
func NewCachedScorer(next Scorer, c Cache, ttl time.Duration, log *logrus.Logger) *CachedScorer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedScorer{next: next, cache: c, ttl: ttl, log: log}
}

func (s *CachedScorer) Name() string { return s.next.Name() }

func (s *CachedScorer) Evaluate(ctx context.Context, req Request) (*Verdict, error) {
	key := CacheKey(s.next.Name(), req)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Warn("Verdict cache lookup failed")
	} else if ok {
		var v Verdict
		if err := json.Unmarshal([]byte(cached), &v); err == nil {
			setRatios(&v, req)
			return &v, nil
		}
		s.log.WithField("key", key).Warn("Discarding unreadable cached verdict")
	}

	v, err := s.next.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Warn("Failed to encode verdict for cache")
		return v, nil
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		s.log.WithError(err).Warn("Verdict cache store failed")
	}
	return v, nil
}

// CacheKey identifies a request for a given strategy
func CacheKey(strategy string, req Request) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%.2f|%.2f|%.2f|%d",
		req.CreditScore, req.AnnualIncome, req.MonthlyEMI, req.LoanAmount, req.LoanTenure)))
	return "eligibility:" + strategy + ":" + hex.EncodeToString(sum[:])
}
