// Package eligibility scores loan applicants.
//
// The rule-based scorer is a pure function of the five financial inputs. An
// AI-backed scorer with the same contract can be selected by configuration.
package eligibility

import "context"

const (
	RecommendationApproved = "Loan approved"
	RecommendationReview   = "Loan requires review"
)

// Request holds the applicant's financial attributes
type Request struct {
	CreditScore  int     `json:"creditScore"`
	AnnualIncome float64 `json:"annualIncome"`
	MonthlyEMI   float64 `json:"monthlyEmi"`
	LoanAmount   float64 `json:"loanAmount"`
	LoanTenure   int     `json:"loanTenure"` // Months
}

// Verdict is the outcome of one evaluation
type Verdict struct {
	Eligible          bool     `json:"eligible"`
	Score             int      `json:"score"`
	CreditScore       int      `json:"creditScore"`
	DebtToIncomeRatio int      `json:"debtToIncomeRatio"` // Whole percent
	LoanToIncomeRatio float64  `json:"loanToIncomeRatio"`
	Issues            []string `json:"issues"`
	Recommendation    string   `json:"recommendation"`

	// Set only by the AI strategy
	EligibilityPercentage *float64 `json:"eligibilityPercentage,omitempty"`
	Reasons               []string `json:"reasons,omitempty"`
}

// Scorer turns a validated request into a verdict
type Scorer interface {
	Name() string
	Evaluate(ctx context.Context, req Request) (*Verdict, error)
}

// Limits are the domain bounds enforced before scoring
type Limits struct {
	MinCreditScore  int
	MaxCreditScore  int
	MinAnnualIncome float64
	MinLoanAmount   float64
	MinLoanTenure   int
	MaxLoanTenure   int // Zero leaves tenure unbounded above
}

// DefaultLimits returns the bounds used by the customer-facing checker
func DefaultLimits() Limits {
	return Limits{
		MinCreditScore:  300,
		MaxCreditScore:  850,
		MinAnnualIncome: 10000,
		MinLoanAmount:   1000,
		MinLoanTenure:   6,
		MaxLoanTenure:   480,
	}
}
