package model

import (
	"time"
)

// Persona is an AI character configuration: a system prompt plus generation
// parameters. Personas are read-only at dialogue time; they are seeded from
// configuration at startup.
type Persona struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36" yaml:"id"`
	Name         string    `json:"name" gorm:"size:64;not null" yaml:"name"`
	Description  string    `json:"description" gorm:"size:1024" yaml:"description"`
	AvatarURL    string    `json:"avatar_url" gorm:"size:512" yaml:"avatar_url"`
	SystemPrompt string    `json:"-" gorm:"type:text" yaml:"system_prompt"`
	Model        string    `json:"model" gorm:"size:64" yaml:"model"`
	Temperature  float64   `json:"temperature" yaml:"temperature"`
	TopP         float64   `json:"top_p" yaml:"top_p"`
	MaxTokens    int       `json:"max_tokens" yaml:"max_tokens"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// PersonaListItem is a persona joined with the caller's conversation,
// as returned by the persona list endpoint.
type PersonaListItem struct {
	Persona      Persona       `json:"persona"`
	Conversation *Conversation `json:"conversation"`
}
