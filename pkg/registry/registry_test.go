package registry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "destinations.json")
	return New(NewFileStore(path)), path
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "destinations.json"))

	want := []DestinationID{"-100200", "-100300", "-100400"}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d destinations, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Load[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFileStoreAbsentFileIsEmptySet(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load of absent file = %v, want empty set", got)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destinations.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load of corrupt file error = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreSaveLeavesValidJSON(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "destinations.json")
	store := NewFileStore(path)

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}

	var decoded []DestinationID
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("saved nil set decoded as %v, want empty array", decoded)
	}
}

func TestRegistryAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	added, err := reg.Add(ctx, "-100200")
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if !added {
		t.Fatal("first Add = false, want true")
	}

	added, err = reg.Add(ctx, "-100200")
	if err != nil {
		t.Fatalf("second Add error: %v", err)
	}
	if added {
		t.Fatal("second Add = true, want false (already registered)")
	}

	snapshot, err := reg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("Snapshot has %d destinations, want 1", len(snapshot))
	}
}

func TestRegistryConcurrentAddsLoseNoUpdates(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	ids := []DestinationID{"-1", "-2", "-3", "-4", "-5", "-6", "-7", "-8"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id DestinationID) {
			defer wg.Done()
			if _, err := reg.Add(ctx, id); err != nil {
				t.Errorf("Add(%s) error: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	snapshot, err := reg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if len(snapshot) != len(ids) {
		t.Fatalf("Snapshot has %d destinations, want %d", len(snapshot), len(ids))
	}

	seen := make(map[DestinationID]bool, len(snapshot))
	for _, id := range snapshot {
		if seen[id] {
			t.Fatalf("duplicate destination %q in snapshot", id)
		}
		seen[id] = true
	}
}

func TestRegistryAddPropagatesCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destinations.json")
	if err := os.WriteFile(path, []byte("broken"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	reg := New(NewFileStore(path))
	if _, err := reg.Add(context.Background(), "-1"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Add on corrupt store error = %v, want ErrCorrupt", err)
	}
}
