package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/mcfradar/internal/model"
)

const (
	maxResumeRunes = 12000
	maxSkills      = 50
)

// Extraction is the structured view of a resume.
type Extraction struct {
	Skills     []string
	Experience []model.Experience
	Summary    string
}

// ProfileExtractor turns resume text into an Extraction. A nil Extraction with
// a nil error means extraction is disabled.
type ProfileExtractor interface {
	Extract(ctx context.Context, resumeText string) (*Extraction, error)
}

// LLMProfileExtractor extracts profiles with an LLM.
type LLMProfileExtractor struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMProfileExtractor creates an extractor that renders tmpl with the
// resume text and parses the provider's JSON answer.
func NewLLMProfileExtractor(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMProfileExtractor {
	return &LLMProfileExtractor{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Extract returns nil for blank resumes without calling the provider.
func (x *LLMProfileExtractor) Extract(ctx context.Context, resumeText string) (*Extraction, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, nil
	}
	if r := []rune(resumeText); len(r) > maxResumeRunes {
		resumeText = string(r[:maxResumeRunes])
	}

	var promptBuf bytes.Buffer
	if err := x.tmpl.Execute(&promptBuf, struct{ Resume string }{Resume: resumeText}); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := x.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	ext, err := parseExtraction(raw)
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if x.logger != nil {
		x.logger.Debug("profile extracted", "skills", len(ext.Skills), "roles", len(ext.Experience))
	}
	return ext, nil
}

// rawProfile matches profileSchema.
type rawProfile struct {
	Skills     []string           `json:"skills"`
	Experience []model.Experience `json:"experience"`
	Summary    string             `json:"summary"`
}

// parseExtraction decodes the structured output, trimming and de-duplicating
// skills case-insensitively.
func parseExtraction(raw string) (*Extraction, error) {
	var rp rawProfile
	if err := json.Unmarshal([]byte(raw), &rp); err != nil {
		return nil, fmt.Errorf("unmarshal profile JSON: %w", err)
	}

	ext := &Extraction{
		Experience: rp.Experience,
		Summary:    strings.TrimSpace(rp.Summary),
	}
	seen := make(map[string]struct{}, len(rp.Skills))
	for _, s := range rp.Skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ext.Skills = append(ext.Skills, s)
		if len(ext.Skills) == maxSkills {
			break
		}
	}
	return ext, nil
}
