package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

const applicantColumns = `id, name, email, phone, pan_encrypted, aadhaar_encrypted, identity_hmac, loan_type, branch,
		annual_income, monthly_emi, loan_amount, loan_tenure, credit_score, eligibility_score, status, issues,
		recommendation, application_date, created_at, updated_at`

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new staff user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO loans.users (email, name, role, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.Name, user.Role, user.PasswordHash, user.Active).
		Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	query := `
		SELECT email, name, role, password_hash, active, last_login, created_at
		FROM loans.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.Active, &lastLogin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

// TouchLastLogin records a successful login
func (r *Repository) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE loans.users SET last_login = $1 WHERE email = $2`, at, email)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectAffected(res, "user "+email)
}

// CreateApplicant inserts a new applicant, assigning an id when empty
func (r *Repository) CreateApplicant(ctx context.Context, a *models.Applicant) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := `
		INSERT INTO loans.applicants (id, name, email, phone, pan_encrypted, aadhaar_encrypted, identity_hmac, loan_type,
			branch, annual_income, monthly_emi, loan_amount, loan_tenure, credit_score, eligibility_score, status, issues,
			recommendation, application_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Name, a.Email, a.Phone, a.PAN, a.Aadhaar, a.HMAC, a.LoanType,
		a.Branch, a.AnnualIncome, a.MonthlyEMI, a.LoanAmount, a.LoanTenure, a.CreditScore, a.EligibilityScore,
		a.Status, pq.Array(issuesOrEmpty(a.Issues)), a.Recommendation, a.ApplicationDate,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("applicant %s: %w", a.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create applicant: %w", err)
	}
	return nil
}

// GetApplicant retrieves an applicant by id
func (r *Repository) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM loans.applicants WHERE id = $1`
	a, err := scanApplicant(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows || isInvalidID(err) {
		return nil, fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get applicant: %w", err)
	}
	return a, nil
}

// ListApplicants returns applicants matching filter, newest first
func (r *Repository) ListApplicants(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.LoanType != "" {
		args = append(args, filter.LoanType)
		conds = append(conds, fmt.Sprintf("loan_type = $%d", len(args)))
	}

	query := `SELECT ` + applicantColumns + ` FROM loans.applicants`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	defer rows.Close()

	applicants := []models.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		applicants = append(applicants, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applicants: %w", err)
	}
	return applicants, nil
}

// UpdateApplicant overwrites the mutable columns of an applicant
func (r *Repository) UpdateApplicant(ctx context.Context, a *models.Applicant) error {
	query := `
		UPDATE loans.applicants SET
			name = $2, email = $3, phone = $4, branch = $5, loan_type = $6, annual_income = $7, monthly_emi = $8,
			loan_amount = $9, loan_tenure = $10, credit_score = $11, eligibility_score = $12, status = $13,
			issues = $14, recommendation = $15, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Name, a.Email, a.Phone, a.Branch, a.LoanType, a.AnnualIncome, a.MonthlyEMI,
		a.LoanAmount, a.LoanTenure, a.CreditScore, a.EligibilityScore, a.Status,
		pq.Array(issuesOrEmpty(a.Issues)), a.Recommendation,
	).Scan(&a.UpdatedAt)
	if err == sql.ErrNoRows || isInvalidID(err) {
		return fmt.Errorf("applicant %s: %w", a.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update applicant: %w", err)
	}
	return nil
}

// DeleteApplicant removes an applicant; documents and logs cascade
func (r *Repository) DeleteApplicant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans.applicants WHERE id = $1`, id)
	if isInvalidID(err) {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete applicant: %w", err)
	}
	return expectAffected(res, "applicant "+id)
}

// ApplicantStats aggregates the applicant book
func (r *Repository) ApplicantStats(ctx context.Context) (*models.ApplicationStats, error) {
	stats := &models.ApplicationStats{}
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'Pending'),
			COUNT(*) FILTER (WHERE status = 'Approved'),
			COUNT(*) FILTER (WHERE status = 'Rejected'),
			COUNT(*) FILTER (WHERE status = 'Under Review'),
			COALESCE(AVG(credit_score), 0),
			COALESCE(AVG(eligibility_score), 0)
		FROM loans.applicants`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total, &stats.Pending, &stats.Approved, &stats.Rejected, &stats.UnderReview,
		&stats.AvgCreditScore, &stats.AvgEligibilityScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute applicant stats: %w", err)
	}
	return stats, nil
}

// CreateDocument stores uploaded document metadata
func (r *Repository) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	query := `
		INSERT INTO loans.documents (id, applicant_id, type, file_name, storage_path, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING uploaded_at`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.ApplicantID, d.Type, d.FileName, d.StoragePath, d.Size).
		Scan(&d.UploadedAt)
	if isInvalidID(err) || isForeignKeyViolation(err) {
		return fmt.Errorf("applicant %s: %w", d.ApplicantID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// ListDocuments returns an applicant's documents in upload order
func (r *Repository) ListDocuments(ctx context.Context, applicantID string) ([]models.Document, error) {
	query := `
		SELECT id, applicant_id, type, file_name, storage_path, size, uploaded_at
		FROM loans.documents
		WHERE applicant_id = $1
		ORDER BY uploaded_at`
	rows, err := r.db.QueryContext(ctx, query, applicantID)
	if isInvalidID(err) {
		return nil, fmt.Errorf("applicant %s: %w", applicantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ApplicantID, &d.Type, &d.FileName, &d.StoragePath, &d.Size, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// CreateEvaluationLog records a scoring run
func (r *Repository) CreateEvaluationLog(ctx context.Context, l *models.EvaluationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
		INSERT INTO loans.evaluation_logs (id, applicant_id, strategy, score, eligible, issues, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		l.ID, l.ApplicantID, l.Strategy, l.Score, l.Eligible, pq.Array(issuesOrEmpty(l.Issues)), l.DurationMs,
	).Scan(&l.CreatedAt)
	if isInvalidID(err) || isForeignKeyViolation(err) {
		return fmt.Errorf("applicant %s: %w", l.ApplicantID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create evaluation log: %w", err)
	}
	return nil
}

// ListEvaluationLogs returns an applicant's scoring history, newest first
func (r *Repository) ListEvaluationLogs(ctx context.Context, applicantID string) ([]models.EvaluationLog, error) {
	query := `
		SELECT id, applicant_id, strategy, score, eligible, issues, duration_ms, created_at
		FROM loans.evaluation_logs
		WHERE applicant_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, applicantID)
	if isInvalidID(err) {
		return nil, fmt.Errorf("applicant %s: %w", applicantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation logs: %w", err)
	}
	defer rows.Close()

	logs := []models.EvaluationLog{}
	for rows.Next() {
		var l models.EvaluationLog
		var issues pq.StringArray
		if err := rows.Scan(&l.ID, &l.ApplicantID, &l.Strategy, &l.Score, &l.Eligible, &issues, &l.DurationMs, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation log: %w", err)
		}
		l.Issues = issuesOrEmpty(issues)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluation logs: %w", err)
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplicant(row rowScanner) (*models.Applicant, error) {
	var (
		a       models.Applicant
		issues  pq.StringArray
		appDate time.Time
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.PAN, &a.Aadhaar, &a.HMAC, &a.LoanType, &a.Branch,
		&a.AnnualIncome, &a.MonthlyEMI, &a.LoanAmount, &a.LoanTenure, &a.CreditScore, &a.EligibilityScore,
		&a.Status, &issues, &a.Recommendation, &appDate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Issues = issuesOrEmpty(issues)
	a.ApplicationDate = appDate.Format("2006-01-02")
	return &a, nil
}

func issuesOrEmpty(issues []string) []string {
	if issues == nil {
		return []string{}
	}
	return issues
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// isInvalidID reports a malformed UUID parameter (invalid_text_representation)
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
