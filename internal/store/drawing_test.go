package store

import (
	"bytes"
	"errors"
	"testing"
)

func TestDrawingRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Drawings().Get(DrawingKey)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	exists, err := s.Drawings().Exists(DrawingKey)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true for an empty store")
	}
}

func TestDrawingRepository_PutOverwrites(t *testing.T) {
	s := newTestStore(t)
	repo := s.Drawings()

	first := &Drawing{Key: DrawingKey, Data: []byte("first"), SessionID: "a"}
	if err := repo.Put(first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if first.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set after Put")
	}

	if err := repo.Put(&Drawing{Key: DrawingKey, Data: []byte("second"), SessionID: "b"}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := repo.Get(DrawingKey)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got.Data, []byte("second")) {
		t.Errorf("Data = %q, want %q", got.Data, "second")
	}
	if got.SessionID != "b" {
		t.Errorf("SessionID = %q, want %q", got.SessionID, "b")
	}

	var rows int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM drawings`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("drawings rows = %d, want 1 (no history)", rows)
	}
}

func TestDrawingRepository_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	repo := s.Drawings()

	if err := repo.Put(&Drawing{Key: DrawingKey, Data: []byte{0x89, 'P', 'N', 'G'}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Delete(DrawingKey); err != nil {
			t.Fatalf("Delete() #%d error = %v", i+1, err)
		}
		if _, err := repo.Get(DrawingKey); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Delete #%d error = %v, want ErrNotFound", i+1, err)
		}
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get(SettingBrushSize); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if got := repo.GetInt(SettingBrushSize, 6); got != 6 {
		t.Errorf("GetInt() default = %d, want 6", got)
	}

	if err := repo.SetInt(SettingBrushSize, 14); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}
	if got := repo.GetInt(SettingBrushSize, 6); got != 14 {
		t.Errorf("GetInt() = %d, want 14", got)
	}

	if err := repo.Set(SettingBrushSize, "wide"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := repo.GetInt(SettingBrushSize, 6); got != 6 {
		t.Errorf("GetInt() for non-numeric value = %d, want default 6", got)
	}
}
