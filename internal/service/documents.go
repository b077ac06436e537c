package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

// UploadDocument stores a supporting document for an applicant
func (s *Service) UploadDocument(ctx context.Context, applicantID string, docType models.DocumentType, fileName string, r io.Reader) (*models.Document, error) {
	if !docType.Valid() {
		return nil, &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "type", Message: "must be one of pan, aadhar, salary_slip, bank_statement, itr"}}}
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return nil, &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "file", Message: "must be a pdf, jpg or png file"}}}
	}
	if _, err := s.store.GetApplicant(ctx, applicantID); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.config.UploadDir, applicantID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(dir, id+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.config.MaxUploadBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if n > s.config.MaxUploadBytes {
		os.Remove(path)
		return nil, &eligibility.ValidationError{Fields: []eligibility.FieldError{{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", s.config.MaxUploadBytes)}}}
	}

	doc := &models.Document{
		ID:          id,
		ApplicantID: applicantID,
		Type:        docType,
		FileName:    filepath.Base(fileName),
		StoragePath: path,
		Size:        n,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.log.WithField("applicant_id", applicantID).Infof("Document uploaded: %s (%d bytes)", doc.Type, doc.Size)
	return doc, nil
}

// ListDocuments returns an applicant's uploaded documents
func (s *Service) ListDocuments(ctx context.Context, applicantID string) ([]models.Document, error) {
	if _, err := s.store.GetApplicant(ctx, applicantID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, applicantID)
}

// RequiredDocuments returns the document checklist for a loan type
func (s *Service) RequiredDocuments(loanType string) ([]string, error) {
	lt, err := ParseLoanType(loanType)
	if err != nil {
		return nil, err
	}
	return models.RequiredDocuments[lt], nil
}

func (s *Service) removeFiles(docs []models.Document) {
	for _, d := range docs {
		if err := os.Remove(d.StoragePath); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).Warnf("Failed to remove document file %s", d.StoragePath)
		}
	}
}
