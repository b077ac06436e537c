package handler

import (
	"net/http"

	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every endpoint. limiter guards the public write endpoints.
func NewRouter(svc *service.Service, limiter *middleware.RateLimiter, log *logrus.Logger) *mux.Router {
	h := NewHandler(svc, log)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.Handle("/api/eligibility", limiter.Handler(http.HandlerFunc(h.CheckEligibility))).Methods("POST")
	r.Handle("/api/applications", limiter.Handler(http.HandlerFunc(h.SubmitApplication))).Methods("POST")
	r.HandleFunc("/api/loan-types/{type}/documents", h.RequiredDocuments).Methods("GET")
	r.Handle("/api/auth/login", limiter.Handler(http.HandlerFunc(h.Login))).Methods("POST")

	// Staff routes
	staff := r.PathPrefix("/api").Subrouter()
	staff.Use(middleware.AuthMiddleware(svc, log))
	staff.HandleFunc("/applicants", h.ListApplicants).Methods("GET")
	staff.HandleFunc("/applicants", h.SubmitApplication).Methods("POST")
	staff.HandleFunc("/applicants/{id}", h.GetApplicant).Methods("GET")
	staff.HandleFunc("/applicants/{id}", h.UpdateApplicant).Methods("PUT")
	staff.Handle("/applicants/{id}", middleware.RequireRole(svc, models.RoleAdmin, models.RoleOfficer)(http.HandlerFunc(h.DeleteApplicant))).Methods("DELETE")
	staff.HandleFunc("/applicants/{id}/evaluate", h.Evaluate).Methods("POST")
	staff.HandleFunc("/applicants/{id}/evaluations", h.Evaluations).Methods("GET")
	staff.HandleFunc("/applicants/{id}/quote", h.Quote).Methods("GET")
	staff.HandleFunc("/applicants/{id}/report", h.GenerateReport).Methods("POST")
	staff.HandleFunc("/applicants/{id}/report.pdf", h.ReportPDF).Methods("GET")
	staff.HandleFunc("/applicants/{id}/documents", h.UploadDocument).Methods("POST")
	staff.HandleFunc("/applicants/{id}/documents", h.ListDocuments).Methods("GET")
	staff.HandleFunc("/reports", h.Statistics).Methods("GET")
	staff.Handle("/users", middleware.RequireRole(svc, models.RoleAdmin)(http.HandlerFunc(h.CreateUser))).Methods("POST")

	return r
}
