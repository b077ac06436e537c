package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/metrics"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/Dan9191/loan-service/internal/utils/email"
)

// ApplicationInput is the public loan application form
type ApplicationInput struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	PAN          string          `json:"pan"`
	Aadhaar      string          `json:"aadhaar"`
	LoanType     models.LoanType `json:"loanType"`
	Branch       string          `json:"branch"`
	CreditScore  float64         `json:"creditScore"`
	AnnualIncome float64         `json:"annualIncome"`
	MonthlyEMI   float64         `json:"monthlyEmi"`
	LoanAmount   float64         `json:"loanAmount"`
	LoanTenure   float64         `json:"loanTenure"`
}

// Evaluation is the outcome of scoring a stored applicant
type Evaluation struct {
	Applicant *models.Applicant    `json:"applicant"`
	Verdict   *eligibility.Verdict `json:"verdict"`
}

// BatchResult summarizes an EvaluatePending run
type BatchResult struct {
	Evaluated int `json:"evaluated"`
	Failed    int `json:"failed"`
}

func (s *Service) applicationSchema() map[string]interface{} {
	props := s.limits.Properties()
	props["name"] = map[string]interface{}{"type": "string", "minLength": 1}
	props["email"] = map[string]interface{}{"type": "string", "format": "email"}
	props["phone"] = map[string]interface{}{"type": "string"}
	props["pan"] = map[string]interface{}{"type": "string", "pattern": "^[A-Za-z]{5}[0-9]{4}[A-Za-z]$"}
	props["aadhaar"] = map[string]interface{}{"type": "string", "pattern": "^[0-9]{12}$"}
	props["branch"] = map[string]interface{}{"type": "string"}

	loanTypes := make([]string, len(models.LoanTypes))
	for i, lt := range models.LoanTypes {
		loanTypes[i] = string(lt)
	}
	props["loanType"] = map[string]interface{}{"type": "string", "enum": loanTypes}

	return map[string]interface{}{
		"type":       "object",
		"required":   append([]string{"name", "email", "loanType"}, eligibility.RequiredFields...),
		"properties": props,
	}
}

// CheckEligibility validates a raw eligibility request and scores it
func (s *Service) CheckEligibility(ctx context.Context, body []byte) (*eligibility.Verdict, error) {
	req, err := eligibility.Validate(body, s.limits)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, req)
}

// score runs the configured scorer and records metrics
func (s *Service) score(ctx context.Context, req eligibility.Request) (*eligibility.Verdict, error) {
	strategy := s.scorer.Name()
	start := time.Now()
	v, err := s.scorer.Evaluate(ctx, req)
	metrics.EligibilityCheckDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())

	outcome := "error"
	switch {
	case err != nil:
	case v.Eligible:
		outcome = "eligible"
	default:
		outcome = "ineligible"
	}
	metrics.EligibilityChecks.WithLabelValues(strategy, outcome).Inc()

	if err != nil {
		s.log.WithError(err).WithField("strategy", strategy).Error("Eligibility check failed")
		return nil, err
	}
	return v, nil
}

// SubmitApplication validates and stores a new application with status Pending
func (s *Service) SubmitApplication(ctx context.Context, body []byte) (*models.Applicant, error) {
	if err := eligibility.CheckSchema(s.applicationSchema(), body); err != nil {
		return nil, err
	}

	var in ApplicationInput
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "body", Message: err.Error()}}}
	}
	financials, err := eligibility.Validate(body, s.limits)
	if err != nil {
		return nil, err
	}

	a := &models.Applicant{
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:           strings.TrimSpace(in.Phone),
		LoanType:        in.LoanType,
		Branch:          strings.TrimSpace(in.Branch),
		AnnualIncome:    financials.AnnualIncome,
		MonthlyEMI:      financials.MonthlyEMI,
		LoanAmount:      financials.LoanAmount,
		LoanTenure:      financials.LoanTenure,
		CreditScore:     financials.CreditScore,
		Status:          models.StatusPending,
		Issues:          []string{},
		ApplicationDate: s.now().Format("2006-01-02"),
	}

	if s.vault != nil {
		encPAN, encAadhaar, tag, err := s.vault.Seal(strings.ToUpper(in.PAN), in.Aadhaar)
		if err != nil {
			return nil, err
		}
		a.PAN, a.Aadhaar, a.HMAC = encPAN, encAadhaar, tag
	} else if in.PAN != "" || in.Aadhaar != "" {
		s.log.WithField("email", a.Email).Warn("Discarding identity numbers: no vault configured")
	}

	if err := s.store.CreateApplicant(ctx, a); err != nil {
		return nil, err
	}

	s.log.WithField("applicant_id", a.ID).Infof("Application submitted: %s loan of %.2f", a.LoanType, a.LoanAmount)
	return s.present(a), nil
}

// ListApplicants returns applicants matching filter, newest first
func (s *Service) ListApplicants(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "status", Message: "unknown status"}}}
	}
	if filter.LoanType != "" {
		lt, err := ParseLoanType(string(filter.LoanType))
		if err != nil {
			return nil, err
		}
		filter.LoanType = lt
	}

	list, err := s.store.ListApplicants(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = *s.present(&list[i])
	}
	return list, nil
}

// GetApplicant returns one applicant with identity numbers masked
func (s *Service) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(a), nil
}

// UpdateApplicant applies a partial update
func (s *Service) UpdateApplicant(ctx context.Context, id string, patch models.ApplicantPatch) (*models.Applicant, error) {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []eligibility.FieldError
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			fields = append(fields, eligibility.FieldError{Field: "name", Message: "must not be empty"})
		}
		a.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		if !strings.Contains(*patch.Email, "@") {
			fields = append(fields, eligibility.FieldError{Field: "email", Message: "must be a valid email address"})
		}
		a.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if patch.Phone != nil {
		a.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Branch != nil {
		a.Branch = strings.TrimSpace(*patch.Branch)
	}
	if patch.LoanType != nil {
		lt, err := ParseLoanType(string(*patch.LoanType))
		if err != nil {
			fields = append(fields, eligibility.FieldError{Field: "loanType", Message: "unknown loan type"})
		}
		a.LoanType = lt
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			fields = append(fields, eligibility.FieldError{Field: "status", Message: "unknown status"})
		}
		a.Status = *patch.Status
	}
	if patch.AnnualIncome != nil {
		a.AnnualIncome = *patch.AnnualIncome
	}
	if patch.MonthlyEMI != nil {
		a.MonthlyEMI = *patch.MonthlyEMI
	}
	if patch.LoanAmount != nil {
		a.LoanAmount = *patch.LoanAmount
	}
	if patch.LoanTenure != nil {
		a.LoanTenure = *patch.LoanTenure
	}
	if patch.CreditScore != nil {
		a.CreditScore = *patch.CreditScore
	}

	// Financials must still satisfy the submission limits.
	raw, err := json.Marshal(requestFor(a))
	if err != nil {
		return nil, fmt.Errorf("failed to encode financials: %w", err)
	}
	if _, err := eligibility.Validate(raw, s.limits); err != nil {
		var verr *eligibility.ValidationError
		if errors.As(err, &verr) {
			fields = append(fields, verr.Fields...)
		}
	}
	if len(fields) > 0 {
		return nil, &eligibility.ValidationError{Fields: fields}
	}

	if err := s.store.UpdateApplicant(ctx, a); err != nil {
		return nil, err
	}
	s.log.WithField("applicant_id", id).Info("Applicant updated")
	return s.present(a), nil
}

// DeleteApplicant removes an applicant and its documents
func (s *Service) DeleteApplicant(ctx context.Context, id string) error {
	docs, err := s.store.ListDocuments(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteApplicant(ctx, id); err != nil {
		return err
	}
	s.removeFiles(docs)
	s.log.WithField("applicant_id", id).Info("Applicant deleted")
	return nil
}

// EvaluateApplicant scores a stored applicant and records the decision
func (s *Service) EvaluateApplicant(ctx context.Context, id string) (*Evaluation, error) {
	a, err := s.store.GetApplicant(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	v, err := s.score(ctx, requestFor(a))
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	a.EligibilityScore = v.Score
	a.Issues = append([]string{}, v.Issues...)
	a.Recommendation = v.Recommendation
	if v.Eligible {
		a.Status = models.StatusApproved
	} else {
		a.Status = models.StatusUnderReview
	}
	if err := s.store.UpdateApplicant(ctx, a); err != nil {
		return nil, err
	}

	entry := &models.EvaluationLog{
		ApplicantID: a.ID,
		Strategy:    s.scorer.Name(),
		Score:       v.Score,
		Eligible:    v.Eligible,
		Issues:      v.Issues,
		DurationMs:  elapsed.Milliseconds(),
	}
	if err := s.store.CreateEvaluationLog(ctx, entry); err != nil {
		s.log.WithError(err).WithField("applicant_id", a.ID).Warn("Failed to write evaluation log")
	}

	s.notify(a)
	s.log.WithField("applicant_id", a.ID).Infof("Applicant evaluated: score %d, status %s", a.EligibilityScore, a.Status)
	return &Evaluation{Applicant: s.present(a), Verdict: v}, nil
}

// EvaluatePending evaluates every Pending applicant. Individual failures are
// logged and counted, never returned.
func (s *Service) EvaluatePending(ctx context.Context) (BatchResult, error) {
	pending, err := s.store.ListApplicants(ctx, models.ApplicantFilter{Status: models.StatusPending})
	if err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	for _, a := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if _, err := s.EvaluateApplicant(ctx, a.ID); err != nil {
			res.Failed++
			metrics.BatchEvaluations.WithLabelValues("failed").Inc()
			s.log.WithError(err).WithField("applicant_id", a.ID).Error("Batch evaluation failed")
			continue
		}
		res.Evaluated++
		metrics.BatchEvaluations.WithLabelValues("evaluated").Inc()
	}

	s.log.Infof("Batch evaluation finished: %d evaluated, %d failed", res.Evaluated, res.Failed)
	return res, nil
}

// ListEvaluations returns an applicant's scoring history
func (s *Service) ListEvaluations(ctx context.Context, id string) ([]models.EvaluationLog, error) {
	if _, err := s.store.GetApplicant(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvaluationLogs(ctx, id)
}

// ParseLoanType matches a loan type case-insensitively
func ParseLoanType(raw string) (models.LoanType, error) {
	for _, lt := range models.LoanTypes {
		if strings.EqualFold(string(lt), strings.TrimSpace(raw)) {
			return lt, nil
		}
	}
	return "", &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "loanType", Message: fmt.Sprintf("unknown loan type %q", raw)}}}
}

func requestFor(a *models.Applicant) eligibility.Request {
	return eligibility.Request{
		CreditScore:  a.CreditScore,
		AnnualIncome: a.AnnualIncome,
		MonthlyEMI:   a.MonthlyEMI,
		LoanAmount:   a.LoanAmount,
		LoanTenure:   a.LoanTenure,
	}
}

func (s *Service) notify(a *models.Applicant) {
	if s.notifier == nil || !s.notifier.Enabled() || a.Email == "" {
		return
	}
	err := s.notifier.SendDecisionNotification(a.Email, email.Decision{
		ApplicantID:    a.ID,
		Name:           a.Name,
		LoanType:       string(a.LoanType),
		LoanAmount:     a.LoanAmount,
		Status:         string(a.Status),
		Score:          a.EligibilityScore,
		Recommendation: a.Recommendation,
		Issues:         a.Issues,
	})
	if err != nil {
		s.log.WithError(err).WithField("applicant_id", a.ID).Warn("Decision email not sent")
	}
}

// present returns a copy with identity numbers decrypted and masked
func (s *Service) present(a *models.Applicant) *models.Applicant {
	out := *a
	out.Issues = append([]string{}, a.Issues...)
	if s.vault == nil || (a.PAN == "" && a.Aadhaar == "") {
		out.PAN, out.Aadhaar = "", ""
		return &out
	}
	pan, aadhaar, err := s.vault.Open(a.PAN, a.Aadhaar, a.HMAC)
	if err != nil {
		s.log.WithError(err).WithField("applicant_id", a.ID).Warn("Identity numbers unavailable")
		out.PAN, out.Aadhaar = "", ""
		return &out
	}
	out.PAN, out.Aadhaar = utils.Mask(pan), utils.Mask(aadhaar)
	return &out
}
