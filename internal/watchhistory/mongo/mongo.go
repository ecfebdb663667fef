// Package mongo is the MongoDB-backed ports.WatchHistoryRepository,
// enabled when a mongo URI is configured.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/internal/domain"
)

type positionDoc struct {
	ID        string  `bson:"_id"`
	InfoHash  string  `bson:"infoHash"`
	FileIndex int     `bson:"fileIndex"`
	Position  float64 `bson:"position"`
	UpdatedAt int64   `bson:"updatedAt"`
}

type Repository struct {
	collection *mongo.Collection
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	return mongo.Connect(ctx, opts...)
}

func NewRepository(client *mongo.Client, dbName string) *Repository {
	return &Repository{collection: client.Database(dbName).Collection("watch_history")}
}

func (r *Repository) Get(ctx context.Context, hash domain.InfoHash) (domain.WatchPosition, bool, error) {
	var doc positionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": string(hash)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.WatchPosition{}, false, nil
		}
		return domain.WatchPosition{}, false, err
	}
	return domain.WatchPosition{
		InfoHash:  domain.InfoHash(doc.InfoHash),
		FileIndex: doc.FileIndex,
		Position:  doc.Position,
		UpdatedAt: time.Unix(doc.UpdatedAt, 0).UTC(),
	}, true, nil
}

func (r *Repository) Save(ctx context.Context, pos domain.WatchPosition) error {
	update := bson.M{"$set": bson.M{
		"infoHash":  string(pos.InfoHash),
		"fileIndex": pos.FileIndex,
		"position":  pos.Position,
		"updatedAt": time.Now().Unix(),
	}}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": string(pos.InfoHash)},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}
