package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/genai"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/Dan9191/loan-service/internal/utils/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testKey = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"

type fakeNotifier struct {
	sent []email.Decision
	to   []string
	err  error
}

func (f *fakeNotifier) Enabled() bool { return true }

func (f *fakeNotifier) SendDecisionNotification(to string, d email.Decision) error {
	f.to = append(f.to, to)
	f.sent = append(f.sent, d)
	return f.err
}

type fakeRates struct {
	rate float64
	err  error
}

func (f fakeRates) KeyRate(context.Context) (float64, error) { return f.rate, f.err }

type fakePrompter struct {
	outputs map[string]string
	err     error
}

func (f *fakePrompter) Generate(_ context.Context, p genai.Prompt) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.outputs[p.Name]
	if !ok {
		return nil, errors.New("unexpected prompt " + p.Name)
	}
	return json.RawMessage(out), nil
}

type testEnv struct {
	svc      *Service
	store    *repository.Memory
	notifier *fakeNotifier
	cfg      *config.Config
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		UploadDir:         t.TempDir(),
		MaxUploadBytes:    1024,
		ApprovalThreshold: 70,
		MinCreditScore:    300,
		MaxCreditScore:    850,
		MinAnnualIncome:   10000,
		MinLoanAmount:     1000,
		MinLoanTenure:     6,
		MaxLoanTenure:     480,
	}
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	vault, err := utils.NewVault(testKey, "hmac-secret")
	require.NoError(t, err)

	store := repository.NewMemory()
	notifier := &fakeNotifier{}
	deps := Dependencies{
		Store:    store,
		Vault:    vault,
		Notifier: notifier,
		Rates:    fakeRates{rate: 6.5},
	}
	if mutate != nil {
		mutate(&deps)
	}

	cfg := testConfig(t)
	svc := NewService(deps, log, cfg)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return &testEnv{svc: svc, store: store, notifier: notifier, cfg: cfg}
}

const validApplication = `{
	"name": "Anjali Rao",
	"email": "Anjali@Example.test",
	"phone": "+91 98765 43210",
	"pan": "abcde1234f",
	"aadhaar": "123412341234",
	"loanType": "Home",
	"branch": "Pune",
	"creditScore": 780,
	"annualIncome": 900000,
	"monthlyEmi": 5000,
	"loanAmount": 250000,
	"loanTenure": 240
}`
