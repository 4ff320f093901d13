package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/nalog/internal/db"
	"github.com/erazemk/nalog/internal/model"
)

func seedRecord(t *testing.T, ctx context.Context, database *sql.DB) (*model.User, *model.Record) {
	t.Helper()
	wh, item := seedStock(t, ctx, database)
	user, err := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	r := &model.Record{
		Kind:        model.KindOrder,
		OwnerUserID: user.ID,
		WarehouseID: wh.ID,
		Title:       "Spring order",
		Metadata:    map[string]string{"receiver": "Ana"},
		LineItems:   []model.LineItem{{ItemID: item.ID, Quantity: 4}},
	}
	id, err := InsertRecord(ctx, database, r)
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	got, err := GetRecord(ctx, database, id)
	if err != nil || got == nil {
		t.Fatalf("GetRecord: %v, %v", got, err)
	}
	return user, got
}

func TestInsertAndGetRecord(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, r := seedRecord(t, ctx, database)

	if r.Status != model.StatusRequested {
		t.Errorf("expected status requested, got %q", r.Status)
	}
	if r.Version != 1 {
		t.Errorf("expected version 1, got %d", r.Version)
	}
	if r.OwnerUserID != user.ID {
		t.Errorf("expected owner %d, got %d", user.ID, r.OwnerUserID)
	}
	if r.Metadata["receiver"] != "Ana" {
		t.Errorf("expected metadata receiver Ana, got %v", r.Metadata)
	}
	if len(r.LineItems) != 1 || r.LineItems[0].Quantity != 4 || r.LineItems[0].ItemName != "Widget" {
		t.Errorf("unexpected line items: %+v", r.LineItems)
	}
	if len(r.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(r.History))
	}
}

func TestGetRecordNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	r, err := GetRecord(context.Background(), database, 999)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if r != nil {
		t.Error("expected nil for missing record")
	}
}

func TestUpdateRecordStatusCompareAndSwap(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, r := seedRecord(t, ctx, database)

	if err := UpdateRecordStatus(ctx, database, r.ID, model.StatusRequested, model.StatusApproved, 1); err != nil {
		t.Fatalf("UpdateRecordStatus: %v", err)
	}

	// Stale version.
	err := UpdateRecordStatus(ctx, database, r.ID, model.StatusApproved, model.StatusConfirmedByShipper, 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict for stale version, got %v", err)
	}

	// Stale status.
	err = UpdateRecordStatus(ctx, database, r.ID, model.StatusRequested, model.StatusRejected, 2)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict for stale status, got %v", err)
	}

	got, _ := GetRecord(ctx, database, r.ID)
	if got.Status != model.StatusApproved || got.Version != 2 {
		t.Errorf("expected approved at version 2, got %q at %d", got.Status, got.Version)
	}
}

func TestAppendHistorySequence(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, r := seedRecord(t, ctx, database)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	h1, err := AppendHistory(ctx, database, r.ID, model.StatusRequested, model.StatusApproved, user.ID, now)
	if err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	h2, err := AppendHistory(ctx, database, r.ID, model.StatusApproved, model.StatusConfirmedByShipper, user.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if h1.Seq != 1 || h2.Seq != 2 {
		t.Errorf("expected sequences 1 and 2, got %d and %d", h1.Seq, h2.Seq)
	}

	history, err := ListHistory(ctx, database, r.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[1].FromStatus != model.StatusApproved || history[1].ToStatus != model.StatusConfirmedByShipper {
		t.Errorf("unexpected second entry: %+v", history[1])
	}
	if !history[0].Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, history[0].Timestamp)
	}
}

func TestUpdateRecordDetails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, r := seedRecord(t, ctx, database)

	r.Title = "Renamed"
	r.Memo = "rush"
	items := []model.LineItem{{ItemID: r.LineItems[0].ItemID, Quantity: 9}}
	if err := UpdateRecordDetails(ctx, database, r, 1, model.StatusRequested, items); err != nil {
		t.Fatalf("UpdateRecordDetails: %v", err)
	}

	got, _ := GetRecord(ctx, database, r.ID)
	if got.Title != "Renamed" || got.Memo != "rush" || got.Version != 2 {
		t.Errorf("unexpected record after update: %+v", got)
	}
	if got.LineItems[0].Quantity != 9 {
		t.Errorf("expected quantity 9, got %d", got.LineItems[0].Quantity)
	}

	// Record no longer in the required status.
	UpdateRecordStatus(ctx, database, r.ID, model.StatusRequested, model.StatusApproved, 2)
	err := UpdateRecordDetails(ctx, database, got, 3, model.StatusRequested, nil)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestDeleteRecordOnlyWhileRequested(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, r := seedRecord(t, ctx, database)

	other := &model.Record{
		Kind: model.KindDemo, OwnerUserID: user.ID, WarehouseID: r.WarehouseID,
		LineItems: r.LineItems,
	}
	otherID, _ := InsertRecord(ctx, database, other)
	UpdateRecordStatus(ctx, database, otherID, model.StatusRequested, model.StatusApproved, 1)

	if err := DeleteRecord(ctx, database, r.ID, 1); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if got, _ := GetRecord(ctx, database, r.ID); got != nil {
		t.Error("expected deleted record to be hidden")
	}

	if err := DeleteRecord(ctx, database, otherID, 2); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict deleting approved record, got %v", err)
	}
}

func TestListRecordsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	user, r := seedRecord(t, ctx, database)

	wh2, _ := CreateWarehouse(ctx, database, "Second", nil)
	demo := &model.Record{
		Kind: model.KindDemo, OwnerUserID: user.ID, WarehouseID: wh2.ID,
		LineItems: r.LineItems,
	}
	if _, err := InsertRecord(ctx, database, demo); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	all, err := ListRecords(ctx, database, RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if len(all[0].LineItems) != 1 {
		t.Errorf("expected line items on listed record, got %+v", all[0].LineItems)
	}

	orders, _ := ListRecords(ctx, database, RecordFilter{Kind: model.KindOrder})
	if len(orders) != 1 || orders[0].ID != r.ID {
		t.Errorf("expected only the order, got %+v", orders)
	}

	visible, _ := ListRecords(ctx, database, RecordFilter{ExcludeWHIDs: []int64{wh2.ID}})
	if len(visible) != 1 || visible[0].WarehouseID != r.WarehouseID {
		t.Errorf("expected restricted warehouse to be hidden, got %+v", visible)
	}

	approved, _ := ListRecords(ctx, database, RecordFilter{Status: model.StatusApproved})
	if len(approved) != 0 {
		t.Errorf("expected no approved records, got %d", len(approved))
	}
}
