package scenestore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"scenegen/internal/domain"
)

func TestMongoSceneDecode(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":           "abc",
		"portrait_id":   "f2",
		"build_type":    "ranger",
		"narration":     "You wake.",
		"visual_scene":  "A clearing.",
		"choices":       bson.A{bson.M{"id": "choice_1", "text": "Stand"}},
		"retry_count":   int32(1),
		"is_successful": true,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc mongoScene
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	scene := doc.toDomain()
	if scene.Combination() != (domain.Combination{PortraitID: "f2", BuildType: domain.BuildRanger}) {
		t.Fatalf("Combination = %v", scene.Combination())
	}
	if len(scene.Choices) != 1 || scene.Choices[0].Text != "Stand" {
		t.Fatalf("Choices = %#v", scene.Choices)
	}
	if scene.RetryCount != 1 || !scene.IsSuccessful {
		t.Fatalf("scene = %+v", scene)
	}
}

func TestMongoSceneNilChoices(t *testing.T) {
	scene := mongoScene{PortraitID: "m1", BuildType: "mage"}.toDomain()
	if scene.Choices == nil {
		t.Fatalf("Choices should be an empty slice, not nil")
	}
	filter := comboFilter(scene.Combination())
	if filter["portrait_id"] != "m1" || filter["build_type"] != "mage" {
		t.Fatalf("comboFilter = %v", filter)
	}
}
