package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

// RegistrantRepository reads form entries filled in by the registration collaborator.
type RegistrantRepository struct {
	db *sqlx.DB
}

// NewRegistrantRepository constructs a RegistrantRepository.
func NewRegistrantRepository(db *sqlx.DB) *RegistrantRepository {
	return &RegistrantRepository{db: db}
}

// ListByCompetition returns registrants in form-entry order.
func (r *RegistrantRepository) ListByCompetition(ctx context.Context, competition string) ([]models.Registrant, error) {
	const query = `SELECT id, competition, first_name, last_name, skill_level, format, day_preference, play_time,
song_1, composer_1, song_2, composer_2, alt_song, alt_composer, parent_email, teacher_email, teacher_name, submitted_at
FROM festival_registrants WHERE competition = $1 ORDER BY submitted_at ASC, id ASC`
	var registrants []models.Registrant
	if err := r.db.SelectContext(ctx, &registrants, query, competition); err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	return registrants, nil
}

// CountByCompetition returns the number of registrants for the competition.
func (r *RegistrantRepository) CountByCompetition(ctx context.Context, competition string) (int, error) {
	const query = `SELECT COUNT(*) FROM festival_registrants WHERE competition = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, competition); err != nil {
		return 0, fmt.Errorf("count registrants: %w", err)
	}
	return total, nil
}
