package models

import "time"

// LoanType is the product an applicant applies for
type LoanType string

const (
	LoanTypePersonal  LoanType = "Personal"
	LoanTypeHome      LoanType = "Home"
	LoanTypeAuto      LoanType = "Auto"
	LoanTypeEducation LoanType = "Education"
	LoanTypeBusiness  LoanType = "Business"
)

// LoanTypes lists every supported loan type
var LoanTypes = []LoanType{LoanTypePersonal, LoanTypeHome, LoanTypeAuto, LoanTypeEducation, LoanTypeBusiness}

// Valid reports whether t is a known loan type
func (t LoanType) Valid() bool {
	for _, lt := range LoanTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an application
type Status string

const (
	StatusPending     Status = "Pending"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
	StatusUnderReview Status = "Under Review"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusUnderReview:
		return true
	}
	return false
}

// Applicant represents a loan application in the system
type Applicant struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	PAN              string    `json:"pan,omitempty"`     // Encrypted at rest, masked in responses
	Aadhaar          string    `json:"aadhaar,omitempty"` // Encrypted at rest, masked in responses
	HMAC             string    `json:"-"`
	LoanType         LoanType  `json:"loanType"`
	Branch           string    `json:"branch,omitempty"`
	AnnualIncome     float64   `json:"annualIncome"`
	MonthlyEMI       float64   `json:"monthlyEmi"`
	LoanAmount       float64   `json:"loanAmount"`
	LoanTenure       int       `json:"loanTenure"`
	CreditScore      int       `json:"creditScore"`
	EligibilityScore int       `json:"eligibilityScore"`
	Status           Status    `json:"status"`
	Issues           []string  `json:"issues"`
	Recommendation   string    `json:"recommendation,omitempty"`
	ApplicationDate  string    `json:"applicationDate"` // Format: YYYY-MM-DD
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ApplicantFilter narrows applicant listings. Zero values match everything.
type ApplicantFilter struct {
	Status   Status
	LoanType LoanType
}

// ApplicantPatch carries a partial update; nil fields are left unchanged
type ApplicantPatch struct {
	Name         *string   `json:"name"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	Branch       *string   `json:"branch"`
	LoanType     *LoanType `json:"loanType"`
	AnnualIncome *float64  `json:"annualIncome"`
	MonthlyEMI   *float64  `json:"monthlyEmi"`
	LoanAmount   *float64  `json:"loanAmount"`
	LoanTenure   *int      `json:"loanTenure"`
	CreditScore  *int      `json:"creditScore"`
	Status       *Status   `json:"status"`
}

// EvaluationLog records one scoring run against an applicant
type EvaluationLog struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicantId"`
	Strategy    string    `json:"strategy"`
	Score       int       `json:"score"`
	Eligible    bool      `json:"eligible"`
	Issues      []string  `json:"issues"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
