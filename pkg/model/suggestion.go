package model

import (
	"time"
)

// Suggestion represents one piece of tuning advice derived from a merge
// run, e.g. a model dropping most of its candidates.
type Suggestion struct {
	ID         int64     `json:"id,omitempty" db:"id"`
	RunUUID    string    `json:"rid" db:"rid"`
	ModelName  string    `json:"model,omitempty" db:"model"`
	Type       string    `json:"type,omitempty"`
	Severity   string    `json:"severity,omitempty"`
	Suggestion string    `json:"suggestion" db:"suggestion"`
	CreatedAt  time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// SuggestionBuilder helps build suggestions with a fluent interface.
type SuggestionBuilder struct {
	suggestion Suggestion
}

// NewSuggestionBuilder creates a new SuggestionBuilder.
func NewSuggestionBuilder() *SuggestionBuilder {
	return &SuggestionBuilder{
		suggestion: Suggestion{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}

// WithRunUUID sets the run UUID.
func (b *SuggestionBuilder) WithRunUUID(runUUID string) *SuggestionBuilder {
	b.suggestion.RunUUID = runUUID
	return b
}

// WithModel sets the model name.
func (b *SuggestionBuilder) WithModel(model string) *SuggestionBuilder {
	b.suggestion.ModelName = model
	return b
}

// WithType sets the suggestion type.
func (b *SuggestionBuilder) WithType(suggestionType string) *SuggestionBuilder {
	b.suggestion.Type = suggestionType
	return b
}

// WithSeverity sets the severity.
func (b *SuggestionBuilder) WithSeverity(severity string) *SuggestionBuilder {
	b.suggestion.Severity = severity
	return b
}

// WithSuggestion sets the suggestion text.
func (b *SuggestionBuilder) WithSuggestion(text string) *SuggestionBuilder {
	b.suggestion.Suggestion = text
	return b
}

// Build returns the built Suggestion.
func (b *SuggestionBuilder) Build() Suggestion {
	return b.suggestion
}

// IsEmpty returns true if the suggestion text is empty.
func (s *Suggestion) IsEmpty() bool {
	return s.Suggestion == ""
}
