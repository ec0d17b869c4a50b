package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/profile_extraction.md
var profileExtractionPromptRaw string

// ProfileExtractionTemplate is the prompt used by LLMProfileExtractor.
var ProfileExtractionTemplate = template.Must(template.New("profile_extraction").Parse(profileExtractionPromptRaw))
