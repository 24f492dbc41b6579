package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"discord-statuskeeper/internal/status"
	"discord-statuskeeper/internal/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	// Nested path: Save must create the containing directory itself.
	path := filepath.Join(t.TempDir(), "data", "status.json")

	want := status.DesiredStatus{
		ActivityType: status.ActivityStreaming,
		Text:         "Big Game",
		URL:          "https://twitch.tv/x",
		AboutMeText:  "professional status haver",
	}
	if err := store.New(path).Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh Store simulates a new process reading the same file.
	got, ok := store.New(path).Load()
	if !ok {
		t.Fatal("expected persisted status to load")
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestSaveIsIdempotentOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "status.json")
	s := store.New(path)

	if err := s.Save(status.Default()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	want := status.DesiredStatus{ActivityType: status.ActivityWatching, Text: "the door"}
	if err := s.Save(want); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, ok := s.Load()
	if !ok || got != want {
		t.Fatalf("expected last write to win, got %+v (ok=%v)", got, ok)
	}
}

func TestLoadMissingFileIsAbsentNotError(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "nope", "status.json"))
	if _, ok := s.Load(); ok {
		t.Fatal("expected absent result for missing file")
	}
}

func TestLoadCorruptFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := store.New(path).Load(); ok {
		t.Fatal("expected absent result for unparseable file")
	}
}
