package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh store Load = %v, want empty set", got)
	}

	want := []DestinationID{"-100200", "-100300"}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d destinations, want %d", len(got), len(want))
	}
}

func TestSQLiteStoreSaveReplacesSet(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	if err := store.Save(ctx, []DestinationID{"-1", "-2"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := store.Save(ctx, []DestinationID{"-3"}); err != nil {
		t.Fatalf("second Save error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 1 || got[0] != "-3" {
		t.Fatalf("Load after replace = %v, want [-3]", got)
	}
}

func TestSQLiteStoreBehindRegistry(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	reg := New(store)
	if added, err := reg.Add(ctx, "-42"); err != nil || !added {
		t.Fatalf("Add = (%v, %v), want (true, nil)", added, err)
	}
	if added, err := reg.Add(ctx, "-42"); err != nil || added {
		t.Fatalf("repeat Add = (%v, %v), want (false, nil)", added, err)
	}
}
