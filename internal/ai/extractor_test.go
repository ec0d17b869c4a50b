package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"text/template"
)

// mockProvider is a stub LLMProvider for testing.
type mockProvider struct {
	response string
	err      error
	prompt   string
	calls    int
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.response, m.err
}

func newTestExtractor(provider LLMProvider) *LLMProfileExtractor {
	tmpl := template.Must(template.New("test").Parse("resume: {{.Resume}}"))
	return NewLLMProfileExtractor(provider, tmpl, nil)
}

func TestExtract_BlankResumeSkipsProvider(t *testing.T) {
	p := &mockProvider{}
	got, err := newTestExtractor(p).Extract(context.Background(), "  \n ")
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v; want nil, nil", got, err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times", p.calls)
	}
}

func TestExtract_ParsesProfile(t *testing.T) {
	p := &mockProvider{response: `{
		"skills": ["Go", " go ", "PostgreSQL", ""],
		"experience": [{"title": "Engineer", "company": "Acme", "duration": "2y",
			"responsibilities": ["Built APIs"], "achievements": []}],
		"summary": "  Backend engineer.  "
	}`}

	got, err := newTestExtractor(p).Extract(context.Background(), "Go engineer at Acme")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Join(got.Skills, ",") != "Go,PostgreSQL" {
		t.Errorf("skills = %v", got.Skills)
	}
	if len(got.Experience) != 1 || got.Experience[0].Company != "Acme" || got.Experience[0].Responsibilities[0] != "Built APIs" {
		t.Errorf("experience = %+v", got.Experience)
	}
	if got.Summary != "Backend engineer." {
		t.Errorf("summary = %q", got.Summary)
	}
	if p.prompt != "resume: Go engineer at Acme" {
		t.Errorf("prompt = %q", p.prompt)
	}
}

func TestExtract_CapsSkills(t *testing.T) {
	var skills []string
	for i := range 80 {
		skills = append(skills, `"s`+strings.Repeat("x", i)+`"`)
	}
	p := &mockProvider{response: `{"skills":[` + strings.Join(skills, ",") + `],"experience":[],"summary":""}`}

	got, err := newTestExtractor(p).Extract(context.Background(), "resume")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got.Skills) != maxSkills {
		t.Errorf("len(skills) = %d, want %d", len(got.Skills), maxSkills)
	}
}

func TestExtract_TruncatesLongResume(t *testing.T) {
	p := &mockProvider{response: `{"skills":[],"experience":[],"summary":""}`}
	long := strings.Repeat("é", maxResumeRunes+500)

	if _, err := newTestExtractor(p).Extract(context.Background(), long); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n := len([]rune(strings.TrimPrefix(p.prompt, "resume: "))); n != maxResumeRunes {
		t.Errorf("prompt carried %d runes, want %d", n, maxResumeRunes)
	}
}

func TestExtract_ProviderError(t *testing.T) {
	p := &mockProvider{err: errors.New("timeout")}
	if _, err := newTestExtractor(p).Extract(context.Background(), "resume"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	p := &mockProvider{response: "not json"}
	if _, err := newTestExtractor(p).Extract(context.Background(), "resume"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNopProfileExtractor(t *testing.T) {
	got, err := NewNopProfileExtractor().Extract(context.Background(), "resume")
	if got != nil || err != nil {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestProfileExtractionTemplate(t *testing.T) {
	var b strings.Builder
	if err := ProfileExtractionTemplate.Execute(&b, struct{ Resume string }{Resume: "RESUME-BODY"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(b.String(), "RESUME-BODY") {
		t.Error("rendered prompt is missing the resume")
	}
}
