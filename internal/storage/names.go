package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scenegen/internal/domain"
)

const timestampLayout = "20060102_150405"

// SceneImageFilename names a generated scene image, for example
// first_scene_m1_warrior_20250101_120000_1a2b3c4d.png.
func SceneImageFilename(combo domain.Combination, now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("first_scene_%s_%s_%s_%s.png", combo.PortraitID, combo.BuildType, now.Format(timestampLayout), shortID(id))
}

// NarrationFilename names a generated narration clip.
func NarrationFilename(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("first_scene_narration_%s_%s.mp3", now.Format(timestampLayout), shortID(id))
}

func shortID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
