package store

import (
	"context"
	"testing"

	"github.com/erazemk/nalog/internal/db"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "WX-01", "Wheelchair", "folding frame")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Name != "Wheelchair" || item.Code != "WX-01" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Description != "folding frame" {
		t.Errorf("expected description 'folding frame', got %q", item.Description)
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "A", "Widget", "")
	if err := UpdateItem(ctx, database, item.ID, "B", "Gadget", "renamed"); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Gadget" || got.Code != "B" {
		t.Errorf("expected updated item, got %+v", got)
	}

	DeleteItem(ctx, database, item.ID)

	got, _ = GetItem(ctx, database, item.ID)
	if got != nil {
		t.Error("expected deleted item to be hidden")
	}
	items, _ := ListItems(ctx, database)
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}
