package models

// ApplicationStats summarizes the applicant book for the staff dashboard
type ApplicationStats struct {
	Total               int     `json:"total"`
	Pending             int     `json:"pending"`
	Approved            int     `json:"approved"`
	Rejected            int     `json:"rejected"`
	UnderReview         int     `json:"underReview"`
	AvgCreditScore      float64 `json:"avgCreditScore"`
	AvgEligibilityScore float64 `json:"avgEligibilityScore"`
}

// EvaluationReport is the generated narrative for one applicant
type EvaluationReport struct {
	ApplicantID string `json:"applicantId"`
	Report      string `json:"report"`
}
