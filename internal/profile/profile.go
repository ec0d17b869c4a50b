// Package profile manages candidate profiles built from resumes and records
// how users interact with jobs.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/amishk599/mcfradar/internal/ai"
	"github.com/amishk599/mcfradar/internal/embedding"
	"github.com/amishk599/mcfradar/internal/model"
)

// ErrUnsupportedFormat is returned for resume files that are not plain text.
var ErrUnsupportedFormat = errors.New("unsupported resume format")

var resumeExtensions = map[string]bool{".txt": true, ".md": true}

// Store is the persistence the service needs.
type Store interface {
	model.ProfileStore
	model.EmbeddingStore
	model.InteractionStore
	GetJob(ctx context.Context, jobUUID string) (model.Job, error)
}

// ResumeInput identifies the resume to process.
type ResumeInput struct {
	UserID string `validate:"required"`
	Text   string `validate:"required"`
}

// Result describes what ProcessResume did.
type Result struct {
	Profile   model.Profile
	Created   bool
	Chars     int
	Extracted bool // structured fields were updated
	Embedded  bool
}

// Service creates and updates candidate profiles.
type Service struct {
	store     Store
	embedder  embedding.Embedder
	extractor ai.ProfileExtractor
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires a profile service. Nil embedder or extractor disable the
// corresponding step.
func NewService(store Store, embedder embedding.Embedder, extractor ai.ProfileExtractor, logger *slog.Logger) *Service {
	if embedder == nil {
		embedder = embedding.NewNopEmbedder()
	}
	if extractor == nil {
		extractor = ai.NewNopProfileExtractor()
	}
	return &Service{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		validate:  validator.New(),
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ReadResume loads a plain-text or markdown resume.
func ReadResume(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !resumeExtensions[ext] {
		return "", fmt.Errorf("%w %q: use a .txt or .md file", ErrUnsupportedFormat, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resume: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ProcessResume stores the resume on the user's profile, creating the profile
// on first use, then refreshes its structured fields and embedding.
func (s *Service) ProcessResume(ctx context.Context, in ResumeInput) (*Result, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	res := &Result{Chars: len([]rune(in.Text))}
	p, err := s.store.ProfileByUser(ctx, in.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		now := s.now().UTC()
		p = model.Profile{
			ID:            s.newID(),
			UserID:        in.UserID,
			RawResumeText: in.Text,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateProfile(ctx, p); err != nil {
			return nil, fmt.Errorf("processing resume: %w", err)
		}
		res.Created = true
		s.logger.Info("profile created", "profile_id", p.ID, "user_id", in.UserID)
	case err != nil:
		return nil, fmt.Errorf("processing resume: %w", err)
	default:
		if err := s.store.UpdateProfile(ctx, p.ID, model.ProfileUpdate{RawResumeText: &in.Text}); err != nil {
			return nil, fmt.Errorf("processing resume: %w", err)
		}
		p.RawResumeText = in.Text
	}

	ext, err := s.extractor.Extract(ctx, in.Text)
	if err != nil {
		s.logger.Warn("profile extraction failed, keeping previous fields", "profile_id", p.ID, "error", err)
	} else if ext != nil {
		u := model.ProfileUpdate{Skills: ext.Skills, Experience: ext.Experience, Summary: &ext.Summary}
		if err := s.store.UpdateProfile(ctx, p.ID, u); err != nil {
			return nil, fmt.Errorf("processing resume: %w", err)
		}
		p.Skills, p.Experience, p.Summary = ext.Skills, ext.Experience, ext.Summary
		res.Extracted = true
	}

	vec, err := embedding.EmbedOne(ctx, s.embedder, in.Text)
	switch {
	case errors.Is(err, embedding.ErrDisabled):
		s.logger.Warn("embedding disabled, profile cannot be matched yet", "profile_id", p.ID)
	case err != nil:
		return nil, fmt.Errorf("embedding resume: %w", err)
	default:
		err = s.store.UpsertCandidateEmbedding(ctx, model.Embedding{
			SubjectID:  p.ID,
			ModelName:  s.embedder.ModelName(),
			Vector:     vec,
			EmbeddedAt: s.now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("processing resume: %w", err)
		}
		res.Embedded = true
	}

	res.Profile = p
	return res, nil
}

// MarkInteraction records that a user viewed, dismissed, applied to or saved
// a job. The job must exist.
func (s *Service) MarkInteraction(ctx context.Context, in model.Interaction) error {
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if _, err := s.store.GetJob(ctx, in.JobUUID); err != nil {
		return fmt.Errorf("marking interaction: %w", err)
	}
	if err := s.store.RecordInteraction(ctx, in, s.now().UTC()); err != nil {
		return fmt.Errorf("marking interaction: %w", err)
	}
	return nil
}

// ValidationError reports the first invalid field.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", strings.ToLower(e.Field), e.Tag)
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return &ValidationError{Field: ves[0].Field(), Tag: ves[0].Tag()}
	}
	return fmt.Errorf("validation: %w", err)
}
