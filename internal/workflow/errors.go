package workflow

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/goliatone/go-errors"

	"github.com/erazemk/nalog/internal/model"
)

// Text codes carried by workflow errors.
const (
	CodeNotFound          = "RECORD_NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeConflict          = "VERSION_CONFLICT"
	CodeInvalidInput      = "INVALID_INPUT"
)

var (
	ErrNotFound = apperrors.New("record not found", apperrors.CategoryNotFound).
			WithTextCode(CodeNotFound)
	ErrForbidden = apperrors.New("operation not permitted", apperrors.CategoryAuthz).
			WithTextCode(CodeForbidden)
	ErrInvalidTransition = apperrors.New("invalid transition", apperrors.CategoryBadInput).
				WithTextCode(CodeInvalidTransition)
	ErrInsufficientStock = apperrors.New("insufficient stock", apperrors.CategoryBadInput).
				WithTextCode(CodeInsufficientStock)
	ErrConflict = apperrors.New("record was modified concurrently", apperrors.CategoryConflict).
			WithTextCode(CodeConflict)
	ErrInvalidInput = apperrors.New("invalid input", apperrors.CategoryBadInput).
			WithTextCode(CodeInvalidInput)
)

func cloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// Code returns the text code of a workflow error, or "" for anything else.
func Code(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// Is reports whether err carries the given text code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

func notFound(recordID int64) error {
	return cloneError(ErrNotFound, fmt.Sprintf("record %d not found", recordID), nil,
		map[string]any{"record_id": recordID})
}

func forbidden(message string, actor model.Actor) error {
	return cloneError(ErrForbidden, message, nil, map[string]any{
		"actor_id": actor.UserID,
		"role":     string(actor.Role),
	})
}

func invalidTransition(r *model.Record, to model.Status) error {
	return cloneError(ErrInvalidTransition,
		fmt.Sprintf("cannot move %s %d from %s to %s", r.Kind, r.ID, r.Status, to), nil,
		map[string]any{"record_id": r.ID, "from": string(r.Status), "to": string(to)})
}

func insufficientStock(li model.LineItem, have int) error {
	name := li.ItemName
	if name == "" {
		name = strconv.FormatInt(li.ItemID, 10)
	}
	return cloneError(ErrInsufficientStock,
		fmt.Sprintf("insufficient stock for item %s (have %d, need %d)", name, have, li.Quantity), nil,
		map[string]any{"item_id": li.ItemID, "have": have, "need": li.Quantity})
}

func conflict(recordID int64, source error) error {
	return cloneError(ErrConflict,
		fmt.Sprintf("record %d was modified concurrently, reload and retry", recordID), source,
		map[string]any{"record_id": recordID})
}

func invalidInput(message string, source error) error {
	return cloneError(ErrInvalidInput, message, source, nil)
}
