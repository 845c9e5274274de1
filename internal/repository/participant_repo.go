package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/d-krstic/StudioOpsBack/internal/models"
)

type ParticipantRepository struct {
	db DBTX
}

func NewParticipantRepository(db DBTX) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Add(
	ctx context.Context,
	sessionID int64,
	clientID int64,
	reservationID uuid.UUID,
) (*models.SessionParticipant, error) {
	query := `
		INSERT INTO session_participants (session_id, client_id, reservation_id)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, client_id, reservation_id, created_at
	`
	var participant models.SessionParticipant
	err := r.db.QueryRow(ctx, query, sessionID, clientID, reservationID).Scan(
		&participant.ID,
		&participant.SessionID,
		&participant.ClientID,
		&participant.ReservationID,
		&participant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *ParticipantRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
) ([]models.SessionParticipant, error) {
	query := `
		SELECT id, session_id, client_id, reservation_id, created_at
		FROM session_participants
		WHERE session_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.SessionParticipant, 0)
	for rows.Next() {
		var participant models.SessionParticipant
		if err := rows.Scan(
			&participant.ID,
			&participant.SessionID,
			&participant.ClientID,
			&participant.ReservationID,
			&participant.CreatedAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

// Remove deletes the participant row and hands back its reservation id
// so the caller can release the credit. Returns found=false when the
// client is not attached, which callers treat as a no-op.
func (r *ParticipantRepository) Remove(
	ctx context.Context,
	sessionID int64,
	clientID int64,
) (uuid.UUID, bool, error) {
	query := `
		DELETE FROM session_participants
		WHERE session_id = $1 AND client_id = $2
		RETURNING reservation_id
	`
	rows, err := r.db.Query(ctx, query, sessionID, clientID)
	if err != nil {
		return uuid.Nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return uuid.Nil, false, rows.Err()
	}
	var reservationID uuid.UUID
	if err := rows.Scan(&reservationID); err != nil {
		return uuid.Nil, false, err
	}
	return reservationID, true, rows.Err()
}
