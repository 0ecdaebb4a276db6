// Package repository loads message envelopes from PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oonrumail/threading/envelope"
)

var (
	ErrNotFound = errors.New("not found")
)

// Repository handles all database operations
type Repository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(db *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetFolderEnvelopes returns the threading envelopes of every message in a
// folder, ordered by UID. limit of 0 means no limit.
func (r *Repository) GetFolderEnvelopes(ctx context.Context, folderID string, limit int) ([]*envelope.Envelope, error) {
	query := `
		SELECT uid, message_id, COALESCE(in_reply_to, ''), COALESCE(references_ids, '[]'),
		       COALESCE(subject, ''), date
		FROM messages
		WHERE folder_id = $1
		ORDER BY uid ASC
	`
	args := []interface{}{folderID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query folder envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []*envelope.Envelope
	for rows.Next() {
		var e envelope.Envelope
		var refsJSON []byte

		err := rows.Scan(&e.UID, &e.MessageID, &e.InReplyTo, &refsJSON, &e.Subject, &e.Date)
		if err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}

		if err := json.Unmarshal(refsJSON, &e.References); err != nil {
			r.logger.Warn("Malformed references list, threading by In-Reply-To only",
				zap.Uint32("uid", e.UID),
				zap.Error(err))
			e.References = nil
		}
		envelopes = append(envelopes, &e)
	}

	return envelopes, rows.Err()
}

// GetFolderModSeq returns the folder's highest modification sequence,
// which the thread cache uses as its validity token.
func (r *Repository) GetFolderModSeq(ctx context.Context, folderID string) (uint64, error) {
	var modseq uint64
	err := r.db.QueryRow(ctx,
		"SELECT highest_modseq FROM folders WHERE id = $1", folderID).Scan(&modseq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("query folder modseq: %w", err)
	}
	return modseq, nil
}
