package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Dan9191/loan-service/internal/genai"
)

// Prompter runs a schema-checked prompt. *genai.Client satisfies it.
type Prompter interface {
	Generate(ctx context.Context, p genai.Prompt) (json.RawMessage, error)
}

type aiOutput struct {
	EligibilityPercentage *float64 `json:"eligibilityPercentage"`
	Reasons               []string `json:"reasons"`
}

// AIScorer asks the prompt service for an eligibility percentage
type AIScorer struct {
	prompter  Prompter
	threshold float64
}

// NewAIScorer initializes a new AI scorer
func NewAIScorer(p Prompter, threshold float64) *AIScorer {
	if threshold <= 0 {
		threshold = DefaultApprovalThreshold
	}
	return &AIScorer{prompter: p, threshold: threshold}
}

func (s *AIScorer) Name() string { return string(StrategyAI) }

func (s *AIScorer) Evaluate(ctx context.Context, req Request) (*Verdict, error) {
	prompt, err := genai.EligibilityPrompt(genai.EligibilityInput{
		CreditScore:  req.CreditScore,
		AnnualIncome: req.AnnualIncome,
		MonthlyEMI:   req.MonthlyEMI,
		LoanAmount:   req.LoanAmount,
		LoanTenure:   req.LoanTenure,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.prompter.Generate(ctx, prompt)
	if err != nil {
		return nil, &UpstreamServiceError{Op: genai.PromptEligibility, Err: err}
	}

	var out aiOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &UpstreamServiceError{Op: genai.PromptEligibility, Err: fmt.Errorf("failed to decode output: %w", err)}
	}
	if out.EligibilityPercentage == nil {
		return nil, &UpstreamServiceError{Op: genai.PromptEligibility, Err: fmt.Errorf("eligibilityPercentage missing")}
	}
	pct := *out.EligibilityPercentage
	if pct < 0 || pct > 100 || math.IsNaN(pct) {
		return nil, &UpstreamServiceError{Op: genai.PromptEligibility, Err: fmt.Errorf("eligibilityPercentage %v out of range", pct)}
	}

	v := s.verdict(req, pct, out.Reasons)
	return &v, nil
}

func (s *AIScorer) verdict(req Request, pct float64, reasons []string) Verdict {
	if reasons == nil {
		reasons = []string{}
	}

	v := Verdict{
		Eligible:              pct >= s.threshold,
		Score:                 int(math.Round(pct)),
		CreditScore:           req.CreditScore,
		Issues:                []string{},
		EligibilityPercentage: &pct,
		Reasons:               reasons,
	}
	if !v.Eligible {
		if len(reasons) > 0 {
			v.Issues = append(v.Issues, reasons...)
		} else {
			v.Issues = append(v.Issues, fmt.Sprintf("Estimated eligibility below approval threshold (%.0f%%)", s.threshold))
		}
	}
	v.Recommendation = recommendation(v.Eligible)
	setRatios(&v, req)
	return v
}
