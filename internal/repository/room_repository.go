package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// RoomRepository persists the room inventory.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListByTerm returns every room in a term, ordered by room number.
func (r *RoomRepository) ListByTerm(ctx context.Context, termID string) ([]models.Room, error) {
	const query = `SELECT id, term_id, number, capacity, type, building, created_at, updated_at
FROM rooms WHERE term_id = $1 ORDER BY number ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, termID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Create inserts a new room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	const query = `INSERT INTO rooms (id, term_id, number, capacity, type, building, created_at, updated_at)
		VALUES (:id, :term_id, :number, :capacity, :type, :building, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}
