package scenestore

import (
	"context"
	"errors"
	"testing"

	"scenegen/internal/domain"
)

func TestMemoryLatestAttemptWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	failed := domain.SceneFromTask(domain.GenerationTask{Combination: warriorM1, RetryCount: 3, LastError: "timeout"})
	if err := store.Upsert(ctx, failed); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if ok, _ := store.Exists(ctx, warriorM1); ok {
		t.Fatalf("failed row should not count as existing")
	}
	if _, err := store.Get(ctx, warriorM1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}

	ok := domain.SceneFromTask(domain.GenerationTask{
		Combination: warriorM1, IsSuccessful: true, Narration: "n", VisualScene: "v",
		Choices: []string{"a", "b", "c", "d"},
	})
	if err := store.Upsert(ctx, ok); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	rows, _ := store.List(ctx)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 per combination", len(rows))
	}
	got, err := store.Get(ctx, warriorM1)
	if err != nil || got.Narration != "n" || len(got.Choices) != 4 {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got.ID != rows[0].ID {
		t.Fatalf("upsert should keep the row id")
	}
}

func TestMemoryBuildImage(t *testing.T) {
	store := NewMemory()
	store.SetBuildImage(warriorM1, "http://x/m1.png")
	url, err := store.BaseImageURL(context.Background(), warriorM1)
	if err != nil || url != "http://x/m1.png" {
		t.Fatalf("BaseImageURL = %q, %v", url, err)
	}
}
