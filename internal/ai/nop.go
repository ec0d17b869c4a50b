package ai

import "context"

// NopProfileExtractor is used when ai.enabled is false.
type NopProfileExtractor struct{}

// NewNopProfileExtractor returns a NopProfileExtractor.
func NewNopProfileExtractor() *NopProfileExtractor {
	return &NopProfileExtractor{}
}

// Extract returns nothing.
func (n *NopProfileExtractor) Extract(context.Context, string) (*Extraction, error) {
	return nil, nil
}
