package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Strategy selects the scoring implementation
type Strategy string

const (
	StrategyRules Strategy = "rules"
	StrategyAI    Strategy = "ai"
)

// DefaultApprovalThreshold is the AI percentage at or above which an applicant is eligible
const DefaultApprovalThreshold = 70.0

// ParseStrategy maps a configuration value to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyRules:
		return StrategyRules, nil
	case StrategyAI:
		return StrategyAI, nil
	default:
		return "", fmt.Errorf("unknown scoring strategy %q", s)
	}
}

// Options configure New
type Options struct {
	Strategy          Strategy
	Prompter          Prompter
	ApprovalThreshold float64
	Cache             Cache
	CacheTTL          time.Duration
	Logger            *logrus.Logger
}

// New builds the scorer selected by opts.Strategy. AI verdicts are cached
// when a cache is supplied.
func New(opts Options) (Scorer, error) {
	switch opts.Strategy {
	case "", StrategyRules:
		return RuleScorer{}, nil
	case StrategyAI:
		if opts.Prompter == nil {
			return nil, fmt.Errorf("ai scoring strategy requires a prompt service")
		}
		var s Scorer = NewAIScorer(opts.Prompter, opts.ApprovalThreshold)
		if opts.Cache != nil {
			s = NewCachedScorer(s, opts.Cache, opts.CacheTTL, opts.Logger)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", opts.Strategy)
	}
}
