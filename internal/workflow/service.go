package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/notify"
	"github.com/erazemk/nalog/internal/store"
)

// Service is the only writer of record status and of the stock levels tied to
// it. Every mutation runs in one SQL transaction that re-reads the record, so
// concurrent callers are serialized by the database and the version check.
// Committed changes are handed to a background dispatcher; call Close to
// flush it.
type Service struct {
	DB  *sql.DB
	Now func() time.Time

	events *notify.Dispatcher
}

// NewService returns a Service delivering events to n. A nil notifier only
// logs events.
func NewService(db *sql.DB, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Log{}
	}
	return &Service{
		DB:     db,
		Now:    time.Now,
		events: notify.NewDispatcher(n, notify.DefaultQueueSize, notify.DefaultSinkTimeout),
	}
}

// Close stops accepting events and waits for queued ones to be delivered, or
// for ctx to end.
func (s *Service) Close(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	return s.events.Close(ctx)
}

// CreateInput is the payload for a new record.
type CreateInput struct {
	Kind        model.Kind        `json:"kind"`
	WarehouseID int64             `json:"warehouse_id"`
	Title       string            `json:"title"`
	Memo        string            `json:"memo"`
	Metadata    map[string]string `json:"metadata"`
	LineItems   []model.LineItem  `json:"line_items"`
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// notify queues an event after commit. It never waits for a sink; an event
// that cannot be queued is logged and dropped.
func (s *Service) notify(ctx context.Context, ev notify.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Notify(ctx, ev); err != nil {
		slog.Warn("notification dropped", "event_id", ev.ID, "type", ev.Type, "record_id", ev.RecordID, "error", err)
	}
}

// loadForActor reads a record and resolves actorID's role for its warehouse.
func loadForActor(ctx context.Context, q store.DBTX, actorID, recordID int64) (*model.Record, model.Actor, error) {
	r, err := store.GetRecord(ctx, q, recordID)
	if err != nil {
		return nil, model.Actor{}, err
	}
	if r == nil {
		return nil, model.Actor{}, notFound(recordID)
	}

	actor, err := store.ResolveActor(ctx, q, actorID, r.WarehouseID)
	if err != nil {
		return nil, model.Actor{}, err
	}
	if actor == nil {
		return nil, model.Actor{}, forbidden("unknown user", model.Actor{UserID: actorID})
	}
	return r, *actor, nil
}

// validateItems checks line items are well formed and refer to existing items.
func validateItems(ctx context.Context, q store.DBTX, items []model.LineItem) error {
	if err := model.ValidateLineItems(items); err != nil {
		return invalidInput(err.Error(), nil)
	}
	for _, li := range items {
		item, err := store.GetItem(ctx, q, li.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return invalidInput(fmt.Sprintf("item %d not found", li.ItemID), nil)
		}
	}
	return nil
}

// Create stores a new record owned by ownerID in the requested state.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*model.Record, error) {
	if !in.Kind.Valid() {
		return nil, invalidInput(fmt.Sprintf("unknown record kind %q", in.Kind), nil)
	}

	var created *model.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		owner, err := store.GetUser(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil || owner.DeletedAt != nil {
			return forbidden("unknown user", model.Actor{UserID: ownerID})
		}

		wh, err := store.GetWarehouse(ctx, tx, in.WarehouseID)
		if err != nil {
			return err
		}
		if wh == nil {
			return invalidInput(fmt.Sprintf("warehouse %d not found", in.WarehouseID), nil)
		}
		if err := validateItems(ctx, tx, in.LineItems); err != nil {
			return err
		}

		id, err := store.InsertRecord(ctx, tx, &model.Record{
			Kind:        in.Kind,
			OwnerUserID: ownerID,
			WarehouseID: in.WarehouseID,
			Title:       in.Title,
			Memo:        in.Memo,
			Metadata:    in.Metadata,
			LineItems:   in.LineItems,
		})
		if err != nil {
			return err
		}
		created, err = store.GetRecord(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("record created", "record_id", created.ID, "kind", created.Kind, "owner_id", ownerID)
	s.notify(ctx, notify.NewEvent(notify.EventCreated, created, "", ownerID, s.now()))
	return created, nil
}

// Get returns a record with its line items and status history.
func (s *Service) Get(ctx context.Context, recordID int64) (*model.Record, error) {
	r, err := store.GetRecord(ctx, s.DB, recordID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound(recordID)
	}
	return r, nil
}

// List returns records matching f, hiding warehouses restricted for actorID.
func (s *Service) List(ctx context.Context, actorID int64, f store.RecordFilter) ([]model.Record, error) {
	restricted, err := store.RestrictedWarehouses(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	f.ExcludeWHIDs = append(f.ExcludeWHIDs, restricted...)
	return store.ListRecords(ctx, s.DB, f)
}

// AllowedTransitions returns the record as read together with the statuses
// actorID may currently move it into, so both reflect the same version.
func (s *Service) AllowedTransitions(ctx context.Context, actorID, recordID int64) (*model.Record, []model.Status, error) {
	r, actor, err := loadForActor(ctx, s.DB, actorID, recordID)
	if err != nil {
		return nil, nil, err
	}
	allowed := AllowedTransitions(actor, r)
	if allowed == nil {
		allowed = []model.Status{}
	}
	return r, allowed, nil
}

// Transition moves a record to target on behalf of actorID and returns the
// updated record. Inventory effects of the edge are applied in the same
// transaction as the status change and its history entry.
func (s *Service) Transition(ctx context.Context, actorID, recordID int64, target model.Status) (*model.Record, error) {
	var (
		updated *model.Record
		from    model.Status
	)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, actor, err := loadForActor(ctx, tx, actorID, recordID)
		if err != nil {
			return err
		}
		from = r.Status

		if !slices.Contains(AllowedTransitions(actor, r), target) {
			if !ValidTransition(r.Kind, r.Status, target) {
				return invalidTransition(r, target)
			}
			return forbidden(fmt.Sprintf("%s may not move %s %d to %s", actor.Role, r.Kind, r.ID, target), actor)
		}

		edge, ok := lookupEdge(r.Kind, r.Status, target)
		if !ok {
			return invalidTransition(r, target)
		}

		switch edge.Effect {
		case EffectDeduct, EffectRestore:
			dir := Deduct
			if edge.Effect == EffectRestore {
				dir = Restore
			}
			err := ApplyDelta(ctx, tx, Delta{
				WarehouseID: r.WarehouseID,
				Items:       r.LineItems,
				Direction:   dir,
				RecordID:    r.ID,
				ActorID:     actor.UserID,
			})
			if err != nil {
				return err
			}
		}

		if err := store.UpdateRecordStatus(ctx, tx, r.ID, r.Status, target, r.Version); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return conflict(r.ID, err)
			}
			return err
		}
		if _, err := store.AppendHistory(ctx, tx, r.ID, r.Status, target, actor.UserID, s.now()); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return conflict(r.ID, err)
			}
			return err
		}

		updated, err = store.GetRecord(ctx, tx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("record transitioned", "record_id", recordID, "from", from, "to", target, "actor_id", actorID)
	s.notify(ctx, notify.NewEvent(notify.EventTransitioned, updated, from, actorID, s.now()))
	return updated, nil
}

// Edit applies a details patch to a record. Non-admins may only edit their own
// requested records, and the commit re-checks that the record is still
// requested at the version that was read. Line items cannot change once stock
// has been deducted for the record.
func (s *Service) Edit(ctx context.Context, actorID, recordID int64, patch model.RecordPatch) (*model.Record, error) {
	if patch.Empty() {
		return nil, invalidInput("nothing to update", nil)
	}

	var updated *model.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, actor, err := loadForActor(ctx, tx, actorID, recordID)
		if err != nil {
			return err
		}
		if !CanEdit(actor, r) {
			return forbidden(fmt.Sprintf("%s %d can no longer be edited by this user", r.Kind, r.ID), actor)
		}
		if patch.LineItems != nil {
			if StockMoved(r.Kind, r.Status) {
				return forbidden("line items are locked once stock has been deducted", actor)
			}
			if err := validateItems(ctx, tx, patch.LineItems); err != nil {
				return err
			}
		}

		if patch.Title != nil {
			r.Title = *patch.Title
		}
		if patch.Memo != nil {
			r.Memo = *patch.Memo
		}
		if patch.Metadata != nil {
			r.Metadata = patch.Metadata
		}

		var requireStatus model.Status
		if !actor.IsAdmin() {
			requireStatus = model.StatusRequested
		}
		if err := store.UpdateRecordDetails(ctx, tx, r, r.Version, requireStatus, patch.LineItems); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return conflict(r.ID, err)
			}
			return err
		}

		updated, err = store.GetRecord(ctx, tx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("record edited", "record_id", recordID, "actor_id", actorID)
	s.notify(ctx, notify.NewEvent(notify.EventEdited, updated, "", actorID, s.now()))
	return updated, nil
}

// Delete soft-deletes a requested record on behalf of its owner or an admin.
func (s *Service) Delete(ctx context.Context, actorID, recordID int64) error {
	var deleted *model.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, actor, err := loadForActor(ctx, tx, actorID, recordID)
		if err != nil {
			return err
		}
		if !CanDelete(actor, r) {
			return forbidden(fmt.Sprintf("%s %d cannot be deleted by this user in status %s", r.Kind, r.ID, r.Status), actor)
		}
		if err := store.DeleteRecord(ctx, tx, r.ID, r.Version); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return conflict(r.ID, err)
			}
			return err
		}
		r.Version++
		deleted = r
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("record deleted", "record_id", recordID, "actor_id", actorID)
	s.notify(ctx, notify.NewEvent(notify.EventDeleted, deleted, "", actorID, s.now()))
	return nil
}
