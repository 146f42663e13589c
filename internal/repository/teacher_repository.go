package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

// TeacherRepository reads teacher sign-ups for a competition.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListByCompetition returns teachers in sign-up order.
func (r *TeacherRepository) ListByCompetition(ctx context.Context, competition string) ([]models.Teacher, error) {
	const query = `SELECT id, competition, name, email, is_judging, volunteer_preferences, schedule_with_students
FROM festival_teachers WHERE competition = $1 ORDER BY created_at ASC, id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, competition); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
