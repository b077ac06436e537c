package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/Dan9191/loan-service/internal/utils/email"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrUnavailable        = errors.New("feature not configured")
)

// Store is the persistence the service depends on. Implemented by
// repository.Repository (Postgres) and repository.Memory.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, email string, at time.Time) error

	CreateApplicant(ctx context.Context, a *models.Applicant) error
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	ListApplicants(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, error)
	UpdateApplicant(ctx context.Context, a *models.Applicant) error
	DeleteApplicant(ctx context.Context, id string) error
	ApplicantStats(ctx context.Context) (*models.ApplicationStats, error)

	CreateDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, applicantID string) ([]models.Document, error)

	CreateEvaluationLog(ctx context.Context, l *models.EvaluationLog) error
	ListEvaluationLogs(ctx context.Context, applicantID string) ([]models.EvaluationLog, error)
}

// Notifier delivers decision emails
type Notifier interface {
	Enabled() bool
	SendDecisionNotification(to string, d email.Decision) error
}

// RateProvider returns the benchmark key rate in percent
type RateProvider interface {
	KeyRate(ctx context.Context) (float64, error)
}

// Dependencies are the collaborators wired into the service. Prompter,
// Notifier and Rates are optional.
type Dependencies struct {
	Store    Store
	Scorer   eligibility.Scorer
	Prompter eligibility.Prompter
	Vault    *utils.Vault
	Notifier Notifier
	Rates    RateProvider
}

// Service handles business logic
type Service struct {
	store    Store
	scorer   eligibility.Scorer
	prompter eligibility.Prompter
	vault    *utils.Vault
	notifier Notifier
	rates    RateProvider
	limits   eligibility.Limits
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time
}

// NewService initializes a new service
func NewService(deps Dependencies, log *logrus.Logger, cfg *config.Config) *Service {
	scorer := deps.Scorer
	if scorer == nil {
		scorer = eligibility.RuleScorer{}
	}
	if deps.Vault == nil {
		log.Warn("No vault configured, PAN and Aadhaar numbers will not be stored")
	}
	return &Service{
		store:    deps.Store,
		scorer:   scorer,
		prompter: deps.Prompter,
		vault:    deps.Vault,
		notifier: deps.Notifier,
		rates:    deps.Rates,
		limits:   cfg.Limits(),
		log:      log,
		config:   cfg,
		now:      time.Now,
	}
}

// Limits returns the validation bounds in force
func (s *Service) Limits() eligibility.Limits {
	return s.limits
}

// ScoringStrategy names the configured scorer
func (s *Service) ScoringStrategy() string {
	return s.scorer.Name()
}

// MaxUploadBytes is the largest document accepted by UploadDocument
func (s *Service) MaxUploadBytes() int64 {
	return s.config.MaxUploadBytes
}
