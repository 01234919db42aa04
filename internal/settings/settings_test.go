package settings

import (
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTripsThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin", "preferences.json")
	s := NewFileStore(path)

	if _, ok := s.Get(opacityKey); ok {
		t.Fatalf("expected no value before first Set")
	}

	if err := s.Set(opacityKey, 0.75); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened := NewFileStore(path)
	got, ok := reopened.Get(opacityKey)
	if !ok || got != 0.75 {
		t.Fatalf("expected 0.75 to survive a reload, got %v ok=%v", got, ok)
	}
}

func TestFileStore_GetIgnoresUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	s := NewFileStore(path)

	if err := s.Set(opacityKey, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Get("someOtherKey"); ok {
		t.Fatalf("expected no value for a key this store does not track")
	}
}

func TestOpacityStore_SaveClampsBelowMin(t *testing.T) {
	o := NewOpacityStore(NewMemoryStore())

	got, err := o.Save(0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.1 {
		t.Fatalf("expected 0.0 to clamp to 0.1, got %v", got)
	}
	if loaded := o.Load(); loaded != 0.1 {
		t.Fatalf("expected persisted value to also read back clamped, got %v", loaded)
	}
}

func TestOpacityStore_SaveClampsAboveMax(t *testing.T) {
	o := NewOpacityStore(NewMemoryStore())

	got, err := o.Save(2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("expected 2.0 to clamp to 1.0, got %v", got)
	}
}

func TestOpacityStore_LoadDefaultsWhenUnset(t *testing.T) {
	o := NewOpacityStore(NewMemoryStore())

	if got := o.Load(); got != 1.0 {
		t.Fatalf("expected default opacity when nothing was ever saved, got %v", got)
	}
}
