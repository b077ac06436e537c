package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

// Memory is an in-process store with the same contract as Repository.
// Used for tests and STORAGE_DRIVER=memory.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]models.User
	applicants map[string]models.Applicant
	documents  map[string][]models.Document
	logs       map[string][]models.EvaluationLog
	now        func() time.Time
}

// NewMemory initializes an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:      map[string]models.User{},
		applicants: map[string]models.Applicant{},
		documents:  map[string][]models.Document{},
		logs:       map[string][]models.EvaluationLog{},
		now:        time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	user.CreatedAt = m.now()
	m.users[user.Email] = *user
	return nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) TouchLastLogin(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	u.LastLogin = &at
	m.users[email] = u
	return nil
}

func (m *Memory) CreateApplicant(_ context.Context, a *models.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, ok := m.applicants[a.ID]; ok {
		return fmt.Errorf("applicant %s: %w", a.ID, ErrDuplicate)
	}
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Issues = issuesOrEmpty(a.Issues)
	m.applicants[a.ID] = cloneApplicant(*a)
	return nil
}

func (m *Memory) GetApplicant(_ context.Context, id string) (*models.Applicant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.applicants[id]
	if !ok {
		return nil, fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	a = cloneApplicant(a)
	return &a, nil
}

func (m *Memory) ListApplicants(_ context.Context, filter models.ApplicantFilter) ([]models.Applicant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Applicant{}
	for _, a := range m.applicants {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.LoanType != "" && a.LoanType != filter.LoanType {
			continue
		}
		out = append(out, cloneApplicant(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateApplicant(_ context.Context, a *models.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.applicants[a.ID]
	if !ok {
		return fmt.Errorf("applicant %s: %w", a.ID, ErrNotFound)
	}
	next := cloneApplicant(*a)
	// Identity columns and creation data are immutable.
	next.PAN, next.Aadhaar, next.HMAC = cur.PAN, cur.Aadhaar, cur.HMAC
	next.ApplicationDate, next.CreatedAt = cur.ApplicationDate, cur.CreatedAt
	next.Issues = issuesOrEmpty(next.Issues)
	next.UpdatedAt = m.now()
	m.applicants[a.ID] = next
	a.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *Memory) DeleteApplicant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.applicants[id]; !ok {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	delete(m.applicants, id)
	delete(m.documents, id)
	delete(m.logs, id)
	return nil
}

func (m *Memory) ApplicantStats(_ context.Context) (*models.ApplicationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &models.ApplicationStats{}
	var creditSum, scoreSum int
	for _, a := range m.applicants {
		stats.Total++
		creditSum += a.CreditScore
		scoreSum += a.EligibilityScore
		switch a.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusUnderReview:
			stats.UnderReview++
		}
	}
	if stats.Total > 0 {
		stats.AvgCreditScore = float64(creditSum) / float64(stats.Total)
		stats.AvgEligibilityScore = float64(scoreSum) / float64(stats.Total)
	}
	return stats, nil
}

func (m *Memory) CreateDocument(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.applicants[d.ApplicantID]; !ok {
		return fmt.Errorf("applicant %s: %w", d.ApplicantID, ErrNotFound)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.UploadedAt = m.now()
	m.documents[d.ApplicantID] = append(m.documents[d.ApplicantID], *d)
	return nil
}

func (m *Memory) ListDocuments(_ context.Context, applicantID string) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Document{}, m.documents[applicantID]...), nil
}

func (m *Memory) CreateEvaluationLog(_ context.Context, l *models.EvaluationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.applicants[l.ApplicantID]; !ok {
		return fmt.Errorf("applicant %s: %w", l.ApplicantID, ErrNotFound)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = m.now()
	l.Issues = append([]string{}, l.Issues...)
	m.logs[l.ApplicantID] = append(m.logs[l.ApplicantID], *l)
	return nil
}

func (m *Memory) ListEvaluationLogs(_ context.Context, applicantID string) ([]models.EvaluationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := m.logs[applicantID]
	out := make([]models.EvaluationLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i])
	}
	return out, nil
}

func cloneApplicant(a models.Applicant) models.Applicant {
	if a.Issues != nil {
		a.Issues = append([]string{}, a.Issues...)
	}
	return a
}
