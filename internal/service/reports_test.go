package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/genai"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	a := submit(t, env, validApplication)
	submit(t, env, `{"name":"Ravi","email":"ravi@example.test","loanType":"Personal","creditScore":601,"annualIncome":50000,"monthlyEmi":0,"loanAmount":300000,"loanTenure":60}`)
	submit(t, env, `{"name":"Meera","email":"meera@example.test","loanType":"Auto","creditScore":700,"annualIncome":400000,"monthlyEmi":0,"loanAmount":300000,"loanTenure":36}`)
	_, err := env.svc.EvaluateApplicant(ctx, a.ID)
	require.NoError(t, err)

	stats, err := env.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 693.67, stats.AvgCreditScore)
	assert.Equal(t, 33.33, stats.AvgEligibilityScore)
}

func TestGenerateReport(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Prompter = &fakePrompter{outputs: map[string]string{
			genai.PromptReport: `{"report":"Applicant Information: Anjali Rao..."}`,
		}}
	})
	a := submit(t, env, validApplication)

	rep, err := env.svc.GenerateReport(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, rep.ApplicantID)
	assert.Equal(t, "Applicant Information: Anjali Rao...", rep.Report)

	_, err = env.svc.GenerateReport(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGenerateReport_Failures(t *testing.T) {
	env := newTestEnv(t, nil)
	a := submit(t, env, validApplication)

	_, err := env.svc.GenerateReport(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrUnavailable)

	env.svc.prompter = &fakePrompter{err: errors.New("quota exceeded")}
	_, err = env.svc.GenerateReport(context.Background(), a.ID)
	assert.ErrorIs(t, err, eligibility.ErrUpstreamService)

	env.svc.prompter = &fakePrompter{outputs: map[string]string{genai.PromptReport: `{"report":"  "}`}}
	_, err = env.svc.GenerateReport(context.Background(), a.ID)
	assert.ErrorIs(t, err, eligibility.ErrUpstreamService)
}

func TestRenderReportPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	a := submit(t, env, validApplication)
	_, err := env.svc.EvaluateApplicant(context.Background(), a.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.svc.RenderReportPDF(context.Background(), a.ID, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.ErrorIs(t, env.svc.RenderReportPDF(context.Background(), "missing", &buf), repository.ErrNotFound)
}

func TestTemplateNarrative(t *testing.T) {
	env := newTestEnv(t, nil)
	a := submit(t, env, `{"name":"Ravi","email":"ravi@example.test","loanType":"Personal","creditScore":600,"annualIncome":50000,"monthlyEmi":0,"loanAmount":300000,"loanTenure":60}`)

	stored, err := env.store.GetApplicant(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Contains(t, templateNarrative(stored), "has not been evaluated yet")

	_, err = env.svc.EvaluateApplicant(context.Background(), a.ID)
	require.NoError(t, err)
	stored, err = env.store.GetApplicant(context.Background(), a.ID)
	require.NoError(t, err)

	text := templateNarrative(stored)
	assert.Contains(t, text, "scored 50 out of 100")
	assert.Contains(t, text, "Credit score below minimum requirement (650)")
	assert.Contains(t, text, "Decision: Under Review (Loan requires review).")
}
