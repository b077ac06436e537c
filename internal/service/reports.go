package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/genai"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/report"
)

// Statistics summarizes the applicant book
func (s *Service) Statistics(ctx context.Context) (*models.ApplicationStats, error) {
	stats, err := s.store.ApplicantStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.AvgCreditScore = roundTo2Decimals(stats.AvgCreditScore)
	stats.AvgEligibilityScore = roundTo2Decimals(stats.AvgEligibilityScore)
	return stats, nil
}

// GenerateReport asks the prompt service for an evaluation narrative
func (s *Service) GenerateReport(ctx context.Context, id string) (*models.EvaluationReport, error) {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := s.narrative(ctx, a)
	if err != nil {
		return nil, err
	}
	return &models.EvaluationReport{ApplicantID: a.ID, Report: text}, nil
}

func (s *Service) narrative(ctx context.Context, a *models.Applicant) (string, error) {
	if s.prompter == nil {
		return "", fmt.Errorf("report generation: %w", ErrUnavailable)
	}

	prompt, err := genai.ReportPrompt(genai.ReportInput{
		Name:             a.Name,
		LoanType:         string(a.LoanType),
		LoanAmount:       a.LoanAmount,
		AnnualIncome:     a.AnnualIncome,
		CreditScore:      a.CreditScore,
		EligibilityScore: a.EligibilityScore,
		Issues:           a.Issues,
	})
	if err != nil {
		return "", err
	}

	raw, err := s.prompter.Generate(ctx, prompt)
	if err != nil {
		return "", &eligibility.UpstreamServiceError{Op: genai.PromptReport, Err: err}
	}
	var out struct {
		Report string `json:"report"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.Report) == "" {
		return "", &eligibility.UpstreamServiceError{Op: genai.PromptReport, Err: fmt.Errorf("report missing from output")}
	}
	return out.Report, nil
}

// RenderReportPDF writes the applicant's evaluation report as PDF. A
// template narrative stands in when the prompt service is unavailable.
func (s *Service) RenderReportPDF(ctx context.Context, id string, w io.Writer) error {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return err
	}

	text, err := s.narrative(ctx, a)
	if err != nil {
		s.log.WithError(err).WithField("applicant_id", id).Warn("Using template narrative for report")
		text = templateNarrative(a)
	}

	return report.RenderPDF(w, report.Data{
		Applicant:   *s.present(a),
		Narrative:   text,
		Quote:       s.quoteFor(ctx, a),
		GeneratedAt: s.now(),
	})
}

func templateNarrative(a *models.Applicant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s applied for a %s loan of %.2f over %d months with an annual income of %.2f and a credit score of %d. ",
		a.Name, a.LoanType, a.LoanAmount, a.LoanTenure, a.AnnualIncome, a.CreditScore)
	if a.Recommendation == "" {
		b.WriteString("The application has not been evaluated yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "The eligibility assessment scored %d out of 100. ", a.EligibilityScore)
	if len(a.Issues) == 0 {
		b.WriteString("No disqualifying factors were found. ")
	} else {
		fmt.Fprintf(&b, "Factors requiring attention: %s. ", strings.Join(a.Issues, "; "))
	}
	fmt.Fprintf(&b, "Decision: %s (%s).", a.Status, a.Recommendation)
	return b.String()
}
