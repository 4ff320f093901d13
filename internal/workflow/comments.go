package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/store"
)

// ErrCommentNotFound is returned for missing or deleted comments.
var ErrCommentNotFound = ErrNotFound.Clone().WithTextCode("COMMENT_NOT_FOUND")

// AddComment attaches a comment by actorID to a record.
func (s *Service) AddComment(ctx context.Context, actorID, recordID int64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("comment content is required", nil)
	}

	var c *model.Comment
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, _, err := loadForActor(ctx, tx, actorID, recordID); err != nil {
			return err
		}
		var err error
		c, err = store.CreateComment(ctx, tx, recordID, actorID, content)
		return err
	})
	return c, err
}

// ListComments returns a record's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, recordID int64) ([]model.Comment, error) {
	if _, err := s.Get(ctx, recordID); err != nil {
		return nil, err
	}
	return store.ListComments(ctx, s.DB, recordID)
}

// UpdateComment replaces a comment's content. Only its author or an admin may
// do so.
func (s *Service) UpdateComment(ctx context.Context, actorID, recordID, commentID int64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("comment content is required", nil)
	}

	var c *model.Comment
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.commentForActor(ctx, tx, actorID, recordID, commentID)
		if err != nil {
			return err
		}
		if err := store.UpdateComment(ctx, tx, existing.ID, content); err != nil {
			return err
		}
		c, err = store.GetComment(ctx, tx, existing.ID)
		return err
	})
	return c, err
}

// DeleteComment removes a comment. Only its author or an admin may do so.
func (s *Service) DeleteComment(ctx context.Context, actorID, recordID, commentID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.commentForActor(ctx, tx, actorID, recordID, commentID)
		if err != nil {
			return err
		}
		return store.DeleteComment(ctx, tx, existing.ID)
	})
}

func (s *Service) commentForActor(ctx context.Context, q store.DBTX, actorID, recordID, commentID int64) (*model.Comment, error) {
	_, actor, err := loadForActor(ctx, q, actorID, recordID)
	if err != nil {
		return nil, err
	}

	c, err := store.GetComment(ctx, q, commentID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.RecordID != recordID {
		return nil, cloneError(ErrCommentNotFound, fmt.Sprintf("comment %d not found", commentID), nil,
			map[string]any{"comment_id": commentID})
	}
	if !CanModifyComment(actor, c) {
		return nil, forbidden("only the author or an admin may change this comment", actor)
	}
	return c, nil
}
