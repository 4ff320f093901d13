package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/nalog/internal/model"
)

// CreateComment attaches a comment to a record.
func CreateComment(ctx context.Context, db DBTX, recordID, userID int64, content string) (*model.Comment, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO record_comments (record_id, user_id, content) VALUES (?, ?, ?)`,
		recordID, userID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting comment id: %w", err)
	}
	return GetComment(ctx, db, id)
}

const commentSelect = `SELECT c.id, c.record_id, c.user_id, c.content, c.created_at, c.updated_at,
	c.deleted_at, u.username
	FROM record_comments c
	JOIN users u ON u.id = c.user_id`

// GetComment returns an active comment by ID.
func GetComment(ctx context.Context, db DBTX, id int64) (*model.Comment, error) {
	c := &model.Comment{}
	err := db.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? AND c.deleted_at IS NULL`, id,
	).Scan(&c.ID, &c.RecordID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting comment: %w", err)
	}
	return c, nil
}

// ListComments returns a record's active comments, oldest first.
func ListComments(ctx context.Context, db DBTX, recordID int64) ([]model.Comment, error) {
	rows, err := db.QueryContext(ctx,
		commentSelect+` WHERE c.record_id = ? AND c.deleted_at IS NULL ORDER BY c.created_at, c.id`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.RecordID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.Username); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateComment replaces a comment's content.
func UpdateComment(ctx context.Context, db DBTX, id int64, content string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE record_comments SET content = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		content, id,
	)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	return nil
}

// DeleteComment soft-deletes a comment.
func DeleteComment(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE record_comments SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	return nil
}
