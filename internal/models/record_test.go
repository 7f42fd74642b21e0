package models

import (
	"testing"
	"time"
)

func TestStampCreate(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	doc := StampCreate(TaskPatch{Name: Ptr("A")}.Fields(), "generated", now)
	if doc.ID() != "generated" {
		t.Errorf("expected generated id, got %q", doc.ID())
	}
	if !doc.Time(FieldCreatedAt).Equal(now) || !doc.Time(FieldUpdatedAt).Equal(now) {
		t.Errorf("expected both timestamps to equal %v", now)
	}

	supplied := Document{}
	if err := supplied.Set(FieldID, "mine"); err != nil {
		t.Fatal(err)
	}
	doc = StampCreate(supplied, "generated", now)
	if doc.ID() != "mine" {
		t.Errorf("expected caller id to be kept, got %q", doc.ID())
	}

	stale := Document{}
	_ = stale.Set(FieldCreatedAt, now.Add(-time.Hour))
	doc = StampCreate(stale, "generated", now)
	if !doc.Time(FieldCreatedAt).Equal(now) {
		t.Errorf("expected created_at to be stamped, got %v", doc.Time(FieldCreatedAt))
	}
}

func TestMerge_PreservesOmittedAndImmutableFields(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := StampCreate(TaskPatch{Name: Ptr("A"), Description: Ptr("d")}.Fields(), "id-1", created)

	patch := TaskPatch{Status: Ptr(StatusCompleted)}.Fields()
	_ = patch.Set(FieldID, "other")
	_ = patch.Set(FieldCreatedAt, created.Add(time.Hour))
	merged := Merge(existing, StampUpdate(patch, created.Add(time.Minute)))

	task, err := Decode[Task](merged)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if task.ID != "id-1" {
		t.Errorf("expected id to be preserved, got %q", task.ID)
	}
	if !task.CreatedAt.Equal(created) {
		t.Errorf("expected created_at to be preserved, got %v", task.CreatedAt)
	}
	if task.Name != "A" || task.Description != "d" {
		t.Errorf("expected omitted fields to be preserved, got %+v", task)
	}
	if task.Status != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, task.Status)
	}
	if !task.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("expected updated_at to be rewritten, got %v", task.UpdatedAt)
	}
}

func TestMerge_UpdatedAtStrictlyIncreases(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := StampCreate(Document{}, "id-1", now)

	merged := Merge(existing, StampUpdate(Document{}, now))
	if !merged.Time(FieldUpdatedAt).After(now) {
		t.Errorf("expected updated_at after %v, got %v", now, merged.Time(FieldUpdatedAt))
	}
}
