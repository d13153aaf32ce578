package scenestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scenegen/internal/domain"
)

const (
	mongoScenesCollection = "first_scenes"
	mongoBuildsCollection = "character_builds"
)

type mongoScene struct {
	ID           string          `bson:"_id"`
	PortraitID   string          `bson:"portrait_id"`
	BuildType    string          `bson:"build_type"`
	Narration    string          `bson:"narration"`
	VisualScene  string          `bson:"visual_scene"`
	ImageURL     string          `bson:"image_url,omitempty"`
	AudioURL     string          `bson:"audio_url,omitempty"`
	Choices      []domain.Choice `bson:"choices"`
	RetryCount   int             `bson:"retry_count"`
	LastError    string          `bson:"last_error,omitempty"`
	IsSuccessful bool            `bson:"is_successful"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

func (m mongoScene) toDomain() domain.PersistedScene {
	choices := m.Choices
	if choices == nil {
		choices = []domain.Choice{}
	}
	return domain.PersistedScene{
		ID:           m.ID,
		PortraitID:   domain.PortraitID(m.PortraitID),
		BuildType:    domain.BuildType(m.BuildType),
		Narration:    m.Narration,
		VisualScene:  m.VisualScene,
		ImageURL:     m.ImageURL,
		AudioURL:     m.AudioURL,
		Choices:      choices,
		RetryCount:   m.RetryCount,
		LastError:    m.LastError,
		IsSuccessful: m.IsSuccessful,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Mongo stores scenes as documents keyed by a unique (portrait_id,
// build_type) index.
type Mongo struct {
	client *mongo.Client
	scenes *mongo.Collection
	builds *mongo.Collection
}

// OpenMongo connects to uri and ensures the collection indexes.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("scenestore: connect mongo: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{
		client: client,
		scenes: db.Collection(mongoScenesCollection),
		builds: db.Collection(mongoBuildsCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.scenes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "portrait_id", Value: 1}, {Key: "build_type", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("scenestore: index %s: %w", mongoScenesCollection, err)
	}
	if _, err := m.builds.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "portrait_id", Value: 1}, {Key: "build_type", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("scenestore: index %s: %w", mongoBuildsCollection, err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func comboFilter(combo domain.Combination) bson.M {
	return bson.M{"portrait_id": string(combo.PortraitID), "build_type": string(combo.BuildType)}
}

func (m *Mongo) Upsert(ctx context.Context, scene domain.PersistedScene) error {
	choices := scene.Choices
	if choices == nil {
		choices = []domain.Choice{}
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"narration":     scene.Narration,
			"visual_scene":  scene.VisualScene,
			"image_url":     scene.ImageURL,
			"audio_url":     scene.AudioURL,
			"choices":       choices,
			"retry_count":   scene.RetryCount,
			"last_error":    scene.LastError,
			"is_successful": scene.IsSuccessful,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	_, err := m.scenes.UpdateOne(ctx, comboFilter(scene.Combination()), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("scenestore: upsert %s: %w", scene.Combination(), err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, combo domain.Combination) (*domain.PersistedScene, error) {
	filter := comboFilter(combo)
	filter["is_successful"] = true
	var doc mongoScene
	if err := m.scenes.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scenestore: get %s: %w", combo, err)
	}
	scene := doc.toDomain()
	return &scene, nil
}

func (m *Mongo) Exists(ctx context.Context, combo domain.Combination) (bool, error) {
	filter := comboFilter(combo)
	filter["is_successful"] = true
	n, err := m.scenes.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("scenestore: exists %s: %w", combo, err)
	}
	return n > 0, nil
}

func (m *Mongo) List(ctx context.Context) ([]domain.PersistedScene, error) {
	cur, err := m.scenes.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "portrait_id", Value: 1}, {Key: "build_type", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("scenestore: list: %w", err)
	}
	var docs []mongoScene
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("scenestore: decode scenes: %w", err)
	}
	out := make([]domain.PersistedScene, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	filter := comboFilter(combo)
	filter["image_url"] = bson.M{"$ne": ""}
	var doc struct {
		ImageURL string `bson:"image_url"`
	}
	err := m.builds.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scenestore: character build %s: %w", combo, err)
	}
	return doc.ImageURL, nil
}

var (
	_ domain.SceneStore      = (*Mongo)(nil)
	_ domain.BaseImageLookup = (*Mongo)(nil)
)
