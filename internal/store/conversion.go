package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/veilleux/sesame/internal/model"
)

// ConversionStore records CSV conversion calls for auditing.
type ConversionStore struct {
	db *sql.DB
}

func NewConversionStore(db *sql.DB) *ConversionStore {
	return &ConversionStore{db: db}
}

// Create inserts a log row for one conversion call.
func (s *ConversionStore) Create(ctx context.Context, userID string, timestamp int64, outputLen int) (*model.ConversionLog, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversion_logs (user_id, timestamp, output_len) VALUES (?, ?, ?)`,
		userID, timestamp, outputLen,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversion log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.ConversionLog{ID: id, UserID: userID, Timestamp: timestamp, OutputLen: outputLen}, nil
}

// ListByUser returns all conversion logs for a user, newest first.
func (s *ConversionStore) ListByUser(ctx context.Context, userID string) ([]model.ConversionLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp, output_len FROM conversion_logs WHERE user_id = ? ORDER BY timestamp DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversion logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ConversionLog
	for rows.Next() {
		var l model.ConversionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Timestamp, &l.OutputLen); err != nil {
			return nil, fmt.Errorf("scan conversion log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
