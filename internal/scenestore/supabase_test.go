package scenestore

import (
	"testing"
	"time"
)

func TestSupabaseSceneToDomain(t *testing.T) {
	img := "http://img"
	created := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	row := supabaseScene{
		ID: "abc", PortraitID: "f3", BuildType: "rogue",
		Narration: "n", VisualScene: "v", ImageURL: &img,
		RetryCount: 2, IsSuccessful: true, CreatedAt: &created,
	}
	scene := row.toDomain()
	if scene.ImageURL != "http://img" || scene.AudioURL != "" || scene.LastError != "" {
		t.Fatalf("scene = %+v", scene)
	}
	if scene.Choices == nil {
		t.Fatalf("nil choices should become an empty slice")
	}
	if !scene.CreatedAt.Equal(created) || !scene.UpdatedAt.IsZero() {
		t.Fatalf("timestamps = %v / %v", scene.CreatedAt, scene.UpdatedAt)
	}
	if nullable("") != nil || *nullable("x") != "x" {
		t.Fatalf("nullable mismatch")
	}
}
