package models

import "time"

// DocumentType identifies an uploaded supporting document
type DocumentType string

const (
	DocumentPAN           DocumentType = "pan"
	DocumentAadhaar       DocumentType = "aadhar"
	DocumentSalarySlip    DocumentType = "salary_slip"
	DocumentBankStatement DocumentType = "bank_statement"
	DocumentITR           DocumentType = "itr"
)

// Valid reports whether t is an accepted document type
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPAN, DocumentAadhaar, DocumentSalarySlip, DocumentBankStatement, DocumentITR:
		return true
	}
	return false
}

// Document is the metadata of an uploaded file
type Document struct {
	ID          string       `json:"id"`
	ApplicantID string       `json:"applicantId"`
	Type        DocumentType `json:"type"`
	FileName    string       `json:"fileName"`
	StoragePath string       `json:"-"`
	Size        int64        `json:"size"`
	UploadedAt  time.Time    `json:"uploadedAt"`
}

// RequiredDocuments is the checklist a branch asks for per loan type
var RequiredDocuments = map[LoanType][]string{
	LoanTypePersonal: {
		"PAN Card",
		"Aadhaar Card",
		"Salary Slips (3 months)",
		"Bank Statements (6 months)",
		"Form 16 / ITR",
		"Employment Certificate",
	},
	LoanTypeEducation: {
		"PAN Card",
		"Aadhaar Card",
		"Admission Letter",
		"Fee Structure",
		"Academic Records",
		"Income Proof of Co-applicant",
		"Bank Statements (6 months)",
	},
	LoanTypeHome: {
		"PAN Card",
		"Aadhaar Card",
		"Salary Slips (3 months)",
		"Bank Statements (12 months)",
		"Property Documents",
		"Sale Agreement",
		"NOC from Builder",
		"Property Valuation Report",
		"Form 16 / ITR (2 years)",
	},
	LoanTypeAuto: {
		"PAN Card",
		"Aadhaar Card",
		"Salary Slips (3 months)",
		"Bank Statements (6 months)",
		"Vehicle Quotation",
		"Insurance Documents",
		"RC Book (for used vehicle)",
	},
	LoanTypeBusiness: {
		"PAN Card",
		"Aadhaar Card",
		"Business Registration Certificate",
		"GST Registration",
		"ITR (3 years)",
		"Bank Statements (12 months)",
		"Financial Statements",
		"Business Plan",
		"Collateral Documents",
	},
}
