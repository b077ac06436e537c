package genai

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	PromptEligibility = "checkCustomerEligibility"
	PromptReport      = "loanEvaluationReport"
)

var eligibilityTemplate = template.Must(template.New(PromptEligibility).Parse(
	`You are a loan eligibility expert. Based on the customer's financial information, determine their eligibility for a loan and provide a percentage representing the likelihood of approval, along with reasons for your assessment.

Credit Score: {{.CreditScore}}
Annual Income: {{printf "%.2f" .AnnualIncome}}
Existing EMIs: {{printf "%.2f" .MonthlyEMI}}
Loan Amount: {{printf "%.2f" .LoanAmount}}
Loan Tenure (months): {{.LoanTenure}}

Respond with a JSON object containing "eligibilityPercentage" (0-100) and "reasons" (a list of short explanations).`))

var reportTemplate = template.Must(template.New(PromptReport).Parse(
	`You are an expert loan officer. Generate a formal loan evaluation report for the applicant below.

Name: {{.Name}}
Loan Type: {{.LoanType}}
Loan Amount: {{printf "%.2f" .LoanAmount}}
Annual Income: {{printf "%.2f" .AnnualIncome}}
Credit Score: {{.CreditScore}}
Eligibility Score: {{.EligibilityScore}}
{{- if .Issues}}
Issues:
{{- range .Issues}}
- {{.}}
{{- end}}
{{- end}}

The report must contain the sections: Applicant Information, Eligibility Assessment, Loan Decision, Justification.
Respond with a JSON object containing a single "report" string.`))

// EligibilityInput fills the eligibility prompt
type EligibilityInput struct {
	CreditScore  int
	AnnualIncome float64
	MonthlyEMI   float64
	LoanAmount   float64
	LoanTenure   int
}

// ReportInput fills the evaluation report prompt
type ReportInput struct {
	Name             string
	LoanType         string
	LoanAmount       float64
	AnnualIncome     float64
	CreditScore      int
	EligibilityScore int
	Issues           []string
}

// EligibilityOutputSchema is the shape the eligibility prompt must return
func EligibilityOutputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"eligibilityPercentage", "reasons"},
		"properties": map[string]interface{}{
			"eligibilityPercentage": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 100,
			},
			"reasons": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}
}

// ReportOutputSchema is the shape the report prompt must return
func ReportOutputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"report"},
		"properties": map[string]interface{}{
			"report": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
		},
	}
}

// EligibilityPrompt renders the eligibility prompt
func EligibilityPrompt(in EligibilityInput) (Prompt, error) {
	text, err := render(eligibilityTemplate, in)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Name: PromptEligibility, Text: text, OutputSchema: EligibilityOutputSchema()}, nil
}

// ReportPrompt renders the evaluation report prompt
func ReportPrompt(in ReportInput) (Prompt, error) {
	text, err := render(reportTemplate, in)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Name: PromptReport, Text: text, OutputSchema: ReportOutputSchema()}, nil
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
