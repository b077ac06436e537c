package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditAdjustment(t *testing.T) {
	assert.Equal(t, -0.5, CreditAdjustment(800))
	assert.Equal(t, -0.25, CreditAdjustment(799))
	assert.Equal(t, -0.25, CreditAdjustment(750))
	assert.Equal(t, 0.0, CreditAdjustment(749))
	assert.Equal(t, 0.0, CreditAdjustment(700))
	assert.Equal(t, 1.0, CreditAdjustment(699))
}

func TestInterestRate(t *testing.T) {
	assert.Equal(t, 8.0, InterestRate(6.5, models.LoanTypeHome, 800))
	assert.Equal(t, 13.0, InterestRate(6.5, models.LoanTypePersonal, 650))
	assert.Equal(t, 9.25, InterestRate(6.5, models.LoanTypeAuto, 760))
	assert.Equal(t, 10.0, InterestRate(6.5, models.LoanTypeEducation, 720))
	assert.Equal(t, 11.5, InterestRate(6.5, models.LoanTypeBusiness, 700))
}

func TestBuildQuote(t *testing.T) {
	q := BuildQuote(100000, 12, 12)

	assert.Equal(t, 8884.88, q.MonthlyPayment)
	require.Len(t, q.Schedule, 12)
	assert.Equal(t, 1000.0, q.Schedule[0].Interest)
	assert.Equal(t, 7884.88, q.Schedule[0].Principal)
	assert.Equal(t, 0.0, q.Schedule[11].Balance)

	var principal float64
	for _, inst := range q.Schedule {
		principal += inst.Principal
	}
	assert.InDelta(t, 100000, principal, 0.01)
	assert.InDelta(t, q.TotalPayment-100000, q.TotalInterest, 0.01)
}

func TestBuildQuote_ZeroRate(t *testing.T) {
	q := BuildQuote(1200, 0, 12)
	assert.Equal(t, 100.0, q.MonthlyPayment)
	assert.Equal(t, 0.0, q.TotalInterest)
	assert.Equal(t, 1200.0, q.TotalPayment)
}

func TestBuildQuote_Degenerate(t *testing.T) {
	q := BuildQuote(0, 10, 12)
	assert.Empty(t, q.Schedule)
	assert.Equal(t, 0.0, q.MonthlyPayment)
}

func TestQuote_KeyRateFallback(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Rates = fakeRates{err: errors.New("cbr down")}
	})
	a := submit(t, env, validApplication)

	q, err := env.svc.Quote(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyRate, q.KeyRate)
	assert.Equal(t, 8.25, q.InterestRate)
	assert.Equal(t, a.ID, q.ApplicantID)
	assert.Len(t, q.Schedule, 240)
}

func TestQuote_UsesProviderRate(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Rates = fakeRates{rate: 16}
	})
	a := submit(t, env, validApplication)

	q, err := env.svc.Quote(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 16.0, q.KeyRate)
	assert.Equal(t, 17.75, q.InterestRate)
}

func TestBuildQuote_ScheduleCapped(t *testing.T) {
	q := BuildQuote(100000, 12, 1200)
	assert.Len(t, q.Schedule, MaxScheduleRows)
	assert.True(t, q.ScheduleTruncated)
	assert.Equal(t, MaxScheduleRows, q.Schedule[MaxScheduleRows-1].Month)
	assert.Greater(t, q.Schedule[MaxScheduleRows-1].Balance, 0.0)
	// Totals still cover every month.
	assert.InDelta(t, q.TotalPayment-100000, q.TotalInterest, 1)
	assert.InDelta(t, q.MonthlyPayment*1200, q.TotalPayment, 1)

	full := BuildQuote(100000, 12, 480)
	assert.Len(t, full.Schedule, 480)
	assert.False(t, full.ScheduleTruncated)
}
