package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// SeedPersonas upserts the configured persona catalog. Called once at
// startup; personas are read-only afterwards.
func (s *Store) SeedPersonas(ctx context.Context, personas []model.Persona) error {
	if len(personas) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "avatar_url", "system_prompt",
				"model", "temperature", "top_p", "max_tokens", "updated_at",
			}),
		}).
		Create(&personas).Error
	return translate(err)
}

// Personas returns the full persona catalog ordered by name.
func (s *Store) Personas(ctx context.Context) ([]model.Persona, error) {
	var personas []model.Persona
	err := s.db.WithContext(ctx).Order("name ASC").Find(&personas).Error
	if err != nil {
		return nil, translate(err)
	}
	return personas, nil
}

// PersonaByID returns one persona, or errs.ErrNotFound.
func (s *Store) PersonaByID(ctx context.Context, id string) (*model.Persona, error) {
	var persona model.Persona
	err := s.db.WithContext(ctx).First(&persona, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &persona, nil
}
