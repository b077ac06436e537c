package service

import (
	"context"
	"math"

	"github.com/Dan9191/loan-service/internal/models"
)

// DefaultKeyRate is used when the key rate provider is disabled or failing
const DefaultKeyRate = 6.5

// Loan-type margins over the key rate, in percentage points
var loanMargins = map[models.LoanType]float64{
	models.LoanTypeHome:      2.0,
	models.LoanTypePersonal:  5.5,
	models.LoanTypeAuto:      3.0,
	models.LoanTypeEducation: 3.5,
	models.LoanTypeBusiness:  5.0,
}

// MaxScheduleRows bounds the installments listed in a quote. Totals still
// cover the whole tenure.
const MaxScheduleRows = 600

// CreditAdjustment is the rate change earned by a credit score
func CreditAdjustment(creditScore int) float64 {
	switch {
	case creditScore >= 800:
		return -0.5
	case creditScore >= 750:
		return -0.25
	case creditScore < 700:
		return 1.0
	default:
		return 0
	}
}

// InterestRate prices a loan type for a credit score on top of keyRate
func InterestRate(keyRate float64, loanType models.LoanType, creditScore int) float64 {
	return roundTo2Decimals(keyRate + loanMargins[loanType] + CreditAdjustment(creditScore))
}

// BuildQuote computes the annuity payment and the repayment schedule, listing
// at most MaxScheduleRows installments
func BuildQuote(principal, annualRate float64, months int) models.LoanQuote {
	q := models.LoanQuote{InterestRate: annualRate, Schedule: []models.Installment{}}
	if months <= 0 || principal <= 0 {
		return q
	}
	q.Schedule = make([]models.Installment, 0, min(months, MaxScheduleRows))

	r := annualRate / 12 / 100
	payment := principal / float64(months)
	if r > 0 {
		payment = principal * r / (1 - math.Pow(1+r, -float64(months)))
	}
	payment = roundTo2Decimals(payment)

	balance := principal
	var totalPaid, totalInterest float64
	for m := 1; m <= months; m++ {
		interest := roundTo2Decimals(balance * r)
		principalPart := roundTo2Decimals(payment - interest)
		amount := payment
		if m == months || principalPart > balance {
			// Final installment absorbs rounding drift.
			principalPart = roundTo2Decimals(balance)
			amount = roundTo2Decimals(principalPart + interest)
		}
		balance = roundTo2Decimals(balance - principalPart)

		if m <= MaxScheduleRows {
			q.Schedule = append(q.Schedule, models.Installment{
				Month:     m,
				Payment:   amount,
				Principal: principalPart,
				Interest:  interest,
				Balance:   balance,
			})
		} else {
			q.ScheduleTruncated = true
		}
		totalPaid += amount
		totalInterest += interest
		if balance <= 0 {
			break
		}
	}

	q.MonthlyPayment = payment
	q.TotalPayment = roundTo2Decimals(totalPaid)
	q.TotalInterest = roundTo2Decimals(totalInterest)
	return q
}

// Quote prices the loan an applicant asked for
func (s *Service) Quote(ctx context.Context, id string) (*models.LoanQuote, error) {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.quoteFor(ctx, a), nil
}

func (s *Service) quoteFor(ctx context.Context, a *models.Applicant) *models.LoanQuote {
	keyRate := s.keyRate(ctx)
	q := BuildQuote(a.LoanAmount, InterestRate(keyRate, a.LoanType, a.CreditScore), a.LoanTenure)
	q.ApplicantID = a.ID
	q.KeyRate = keyRate
	return &q
}

func (s *Service) keyRate(ctx context.Context) float64 {
	if s.rates == nil {
		return DefaultKeyRate
	}
	rate, err := s.rates.KeyRate(ctx)
	if err != nil {
		s.log.WithError(err).Warnf("Key rate unavailable, using default %.2f%%", DefaultKeyRate)
		return DefaultKeyRate
	}
	return rate
}

func roundTo2Decimals(v float64) float64 {
	return math.Round(v*100) / 100
}
