package models

// Installment is one row of a repayment schedule
type Installment struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// LoanQuote is the indicative pricing of an applicant's requested loan
type LoanQuote struct {
	ApplicantID    string        `json:"applicantId"`
	KeyRate        float64       `json:"keyRate"`
	InterestRate   float64       `json:"interestRate"` // Annual, percent
	MonthlyPayment float64       `json:"monthlyPayment"`
	TotalPayment   float64       `json:"totalPayment"`
	TotalInterest  float64       `json:"totalInterest"`
	Schedule       []Installment `json:"schedule"`

	// Set when Schedule holds only the leading installments
	ScheduleTruncated bool `json:"scheduleTruncated,omitempty"`
}
