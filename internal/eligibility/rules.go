package eligibility

import (
	"context"
	"math"
)

const (
	MinCreditScore       = 650
	MaxDebtToIncomeRatio = 0.4
	MaxLoanToIncomeRatio = 5.0
)

type rule struct {
	penalty int
	issue   string
	applies func(req Request, dti, lti float64) bool
}

// Evaluation order is the order issues are reported in.
var rules = []rule{
	{
		penalty: 30,
		issue:   "Credit score below minimum requirement (650)",
		applies: func(req Request, _, _ float64) bool { return req.CreditScore < MinCreditScore },
	},
	{
		penalty: 25,
		issue:   "Debt-to-income ratio too high (>40%)",
		applies: func(_ Request, dti, _ float64) bool { return dti > MaxDebtToIncomeRatio },
	},
	{
		penalty: 20,
		issue:   "Loan amount too high relative to income",
		applies: func(_ Request, _, lti float64) bool { return lti > MaxLoanToIncomeRatio },
	},
}

// DebtToIncome returns annualized existing debt service over annual income.
// AnnualIncome must be positive.
func DebtToIncome(req Request) float64 {
	return (req.MonthlyEMI * 12) / req.AnnualIncome
}

// LoanToIncome returns the requested principal over annual income.
func LoanToIncome(req Request) float64 {
	return req.LoanAmount / req.AnnualIncome
}

// Evaluate applies every rule to req and returns the verdict.
// req must already be validated.
func Evaluate(req Request) Verdict {
	dti := DebtToIncome(req)
	lti := LoanToIncome(req)

	v := Verdict{
		Eligible:    true,
		Score:       100,
		CreditScore: req.CreditScore,
		Issues:      []string{},
	}
	for _, r := range rules {
		if !r.applies(req, dti, lti) {
			continue
		}
		v.Eligible = false
		v.Score -= r.penalty
		v.Issues = append(v.Issues, r.issue)
	}
	if v.Score < 0 {
		v.Score = 0
	}

	v.Recommendation = recommendation(v.Eligible)
	setRatios(&v, req)
	return v
}

func recommendation(eligible bool) string {
	if eligible {
		return RecommendationApproved
	}
	return RecommendationReview
}

func setRatios(v *Verdict, req Request) {
	v.DebtToIncomeRatio = int(math.Round(DebtToIncome(req) * 100))
	v.LoanToIncomeRatio = math.Round(LoanToIncome(req)*100) / 100
}

// RuleScorer is the deterministic threshold strategy
type RuleScorer struct{}

func (RuleScorer) Name() string { return string(StrategyRules) }

func (RuleScorer) Evaluate(_ context.Context, req Request) (*Verdict, error) {
	v := Evaluate(req)
	return &v, nil
}
