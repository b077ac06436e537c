package eligibility

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// RequiredFields are the request keys every eligibility check needs
var RequiredFields = []string{"creditScore", "annualIncome", "monthlyEmi", "loanAmount", "loanTenure"}

// Properties returns the JSON schema properties for the financial fields
func (l Limits) Properties() map[string]interface{} {
	tenure := map[string]interface{}{
		"type":    "integer",
		"minimum": l.MinLoanTenure,
	}
	if l.MaxLoanTenure > 0 {
		tenure["maximum"] = l.MaxLoanTenure
	}
	return map[string]interface{}{
		"creditScore": map[string]interface{}{
			"type":    "integer",
			"minimum": l.MinCreditScore,
			"maximum": l.MaxCreditScore,
		},
		"annualIncome": map[string]interface{}{
			"type":    "number",
			"minimum": l.MinAnnualIncome,
		},
		"monthlyEmi": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
		},
		"loanAmount": map[string]interface{}{
			"type":    "number",
			"minimum": l.MinLoanAmount,
		},
		"loanTenure": tenure,
	}
}

// Schema returns the JSON schema for an eligibility request
func (l Limits) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"required":   RequiredFields,
		"properties": l.Properties(),
	}
}

// Validate checks body against the limits and decodes it into a Request.
// The returned error is a *ValidationError.
func Validate(body []byte, limits Limits) (Request, error) {
	if err := CheckSchema(limits.Schema(), body); err != nil {
		return Request{}, err
	}

	// Whole floats such as 700.0 pass the integer check, so decode through float64.
	var w struct {
		CreditScore  float64 `json:"creditScore"`
		AnnualIncome float64 `json:"annualIncome"`
		MonthlyEMI   float64 `json:"monthlyEmi"`
		LoanAmount   float64 `json:"loanAmount"`
		LoanTenure   float64 `json:"loanTenure"`
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return Request{}, &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}
	creditScore, okScore := wholeInt(w.CreditScore)
	tenure, okTenure := wholeInt(w.LoanTenure)
	var fields []FieldError
	if !okScore {
		fields = append(fields, FieldError{Field: "creditScore", Message: "out of range"})
	}
	if !okTenure {
		fields = append(fields, FieldError{Field: "loanTenure", Message: "out of range"})
	}
	if len(fields) > 0 {
		return Request{}, &ValidationError{Fields: fields}
	}
	return Request{
		CreditScore:  creditScore,
		AnnualIncome: w.AnnualIncome,
		MonthlyEMI:   w.MonthlyEMI,
		LoanAmount:   w.LoanAmount,
		LoanTenure:   tenure,
	}, nil
}

// wholeInt converts a schema-checked integer, refusing values a Postgres
// INTEGER column cannot hold.
func wholeInt(v float64) (int, bool) {
	if v < math.MinInt32 || v > math.MaxInt32 || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// CheckSchema validates a JSON document against schema and reports every
// failing field, sorted by field name.
func CheckSchema(schema map[string]interface{}, body []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "body", Message: "must be a JSON object"}}}
	}
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if p, ok := desc.Details()["property"]; ok {
				field = fmt.Sprint(p)
			}
		}
		fields = append(fields, FieldError{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}
