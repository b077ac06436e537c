package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/genai"
	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey       = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
	adminEmail    = "admin@bank.test"
	adminPassword = "admin-password"
)

const application = `{
	"name": "Anjali Rao",
	"email": "anjali@example.test",
	"pan": "ABCDE1234F",
	"aadhaar": "123412341234",
	"loanType": "Home",
	"creditScore": 780,
	"annualIncome": 900000,
	"monthlyEmi": 5000,
	"loanAmount": 250000,
	"loanTenure": 240
}`

type failingPrompter struct{}

func (failingPrompter) Generate(context.Context, genai.Prompt) (json.RawMessage, error) {
	return nil, errors.New("connection refused")
}

func newTestRouter(t *testing.T, mutate func(*service.Dependencies)) *mux.Router {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	vault, err := utils.NewVault(testKey, "hmac-secret")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1024,
		MinCreditScore: 300, MaxCreditScore: 850,
		MinAnnualIncome: 10000, MinLoanAmount: 1000, MinLoanTenure: 6, MaxLoanTenure: 480,
		ApprovalThreshold: 70,
	}
	deps := service.Dependencies{Store: repository.NewMemory(), Vault: vault}
	if mutate != nil {
		mutate(&deps)
	}
	svc := service.NewService(deps, log, cfg)
	require.NoError(t, svc.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	return NewRouter(svc, middleware.NewRateLimiter(1000, 1000, log), log)
}

func do(t *testing.T, r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r http.Handler, emailAddr, password string) string {
	t.Helper()
	rec := do(t, r, "POST", "/api/auth/login", "", `{"email":"`+emailAddr+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := do(t, r, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","strategy":"rules"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCheckEligibility(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, "POST", "/api/eligibility", "", `{"creditScore":780,"annualIncome":900000,"monthlyEmi":5000,"loanAmount":250000,"loanTenure":240}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var v eligibility.Verdict
	decode(t, rec, &v)
	assert.True(t, v.Eligible)
	assert.Equal(t, 100, v.Score)
	assert.Empty(t, v.Issues)

	rec = do(t, r, "POST", "/api/eligibility", "", `{"creditScore":780}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp struct {
		Error   string                   `json:"error"`
		Details []eligibility.FieldError `json:"details"`
	}
	decode(t, rec, &errResp)
	assert.Equal(t, "Invalid input data", errResp.Error)
	assert.NotEmpty(t, errResp.Details)
}

func TestCheckEligibility_UpstreamFailure(t *testing.T) {
	r := newTestRouter(t, func(d *service.Dependencies) {
		d.Scorer = eligibility.NewAIScorer(failingPrompter{}, 70)
	})
	rec := do(t, r, "POST", "/api/eligibility", "", `{"creditScore":780,"annualIncome":900000,"monthlyEmi":5000,"loanAmount":250000,"loanTenure":240}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRequiredDocuments(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, "GET", "/api/loan-types/home/documents", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Salary Slips")

	rec = do(t, r, "GET", "/api/loan-types/yacht/documents", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := do(t, r, "POST", "/api/auth/login", "", `{"email":"admin@bank.test","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, "POST", "/api/auth/login", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaffRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "GET", "/api/applicants", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, "GET", "/api/applicants", "garbage", "").Code)
}

func TestApplicantWorkflow(t *testing.T) {
	r := newTestRouter(t, nil)
	token := login(t, r, adminEmail, adminPassword)

	rec := do(t, r, "POST", "/api/applications", "", application)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Applicant
	decode(t, rec, &created)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "XXXXXX234F", created.PAN)

	rec = do(t, r, "GET", "/api/applicants?status=Pending", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Applicant
	decode(t, rec, &list)
	require.Len(t, list, 1)

	rec = do(t, r, "PUT", "/api/applicants/"+created.ID, token, `{"branch":"Mumbai"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, "POST", "/api/applicants/"+created.ID+"/evaluate", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var evaluation service.Evaluation
	decode(t, rec, &evaluation)
	assert.Equal(t, models.StatusApproved, evaluation.Applicant.Status)
	assert.Equal(t, "Mumbai", evaluation.Applicant.Branch)

	rec = do(t, r, "GET", "/api/applicants/"+created.ID+"/evaluations", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []models.EvaluationLog
	decode(t, rec, &logs)
	assert.Len(t, logs, 1)

	rec = do(t, r, "GET", "/api/applicants/"+created.ID+"/quote", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote models.LoanQuote
	decode(t, rec, &quote)
	assert.Len(t, quote.Schedule, 240)

	rec = do(t, r, "GET", "/api/applicants/"+created.ID+"/report.pdf", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(t, r, "POST", "/api/applicants/"+created.ID+"/report", token, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, "GET", "/api/reports", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.ApplicationStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Approved)

	assert.Equal(t, http.StatusNoContent, do(t, r, "DELETE", "/api/applicants/"+created.ID, token, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/api/applicants/"+created.ID, token, "").Code)
}

func TestCreateUser_RoleEnforced(t *testing.T) {
	r := newTestRouter(t, nil)
	admin := login(t, r, adminEmail, adminPassword)

	rec := do(t, r, "POST", "/api/users", admin, `{"email":"uw@bank.test","name":"UW","role":"underwriter","password":"underwriter-pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "underwriter-pw")

	rec = do(t, r, "POST", "/api/users", admin, `{"email":"uw@bank.test","name":"UW","role":"underwriter","password":"underwriter-pw"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	uw := login(t, r, "uw@bank.test", "underwriter-pw")
	rec = do(t, r, "POST", "/api/users", uw, `{"email":"x@bank.test","role":"officer","password":"officer-pw"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, "DELETE", "/api/applicants/anything", uw, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	r := newTestRouter(t, nil)
	token := login(t, r, adminEmail, adminPassword)

	rec := do(t, r, "POST", "/api/applications", "", application)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Applicant
	decode(t, rec, &created)

	upload := func(docType, name string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("type", docType))
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		fw.Write(content)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/applicants/"+created.ID+"/documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec = upload("pan", "pan.pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, upload("passport", "p.pdf", []byte("x")).Code)
	assert.Equal(t, http.StatusBadRequest, upload("itr", "itr.exe", []byte("x")).Code)
	assert.Equal(t, http.StatusBadRequest, upload("itr", "itr.pdf", bytes.Repeat([]byte("x"), 2048)).Code)

	rec = do(t, r, "GET", "/api/applicants/"+created.ID+"/documents", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []models.Document
	decode(t, rec, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentPAN, docs[0].Type)
}

func TestSubmitApplication_OversizedTenure(t *testing.T) {
	r := newTestRouter(t, nil)
	body := strings.Replace(application, `"loanTenure": 240`, `"loanTenure": 1e20`, 1)

	rec := do(t, r, "POST", "/api/applications", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "loanTenure")
}
