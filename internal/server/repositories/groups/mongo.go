package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Repository = (*MongoRepository)(nil)

// MongoRepository stores one document per group. Documents are addressed by
// the application id field, the Mongo _id is never exposed.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// Indexes are non-unique: names are unique only by find-or-create convention.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetName("id_1")},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_1")},
	}
}

// EnsureIndexes creates the lookup indexes if they are missing.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.coll.Indexes().CreateMany(ctx, Indexes()); err != nil {
		return fmt.Errorf("create group indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, g *models.Group) error {
	if g.Files == nil {
		g.Files = []models.FileMeta{}
	}
	if g.Groups == nil {
		g.Groups = []models.Group{}
	}
	if _, err := r.coll.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*models.Group, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 0}})

	g := &models.Group{}
	if err := r.coll.FindOne(ctx, filter, opts).Decode(g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *MongoRepository) FindByIDOrName(ctx context.Context, identifier string) (*models.Group, error) {
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "id", Value: identifier}},
		bson.D{{Key: "name", Value: identifier}},
	}}})
}

func (r *MongoRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *MongoRepository) List(ctx context.Context) ([]*models.Group, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*models.Group{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "id", Value: id}}); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) update(ctx context.Context, filter, update bson.D) error {
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) SetName(ctx context.Context, id, name string) error {
	return r.update(ctx,
		bson.D{{Key: "id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: name}}}})
}

func (r *MongoRepository) PushFiles(ctx context.Context, id string, files []models.FileMeta) error {
	if len(files) == 0 {
		return nil
	}
	return r.update(ctx,
		bson.D{{Key: "id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "files", Value: bson.D{{Key: "$each", Value: files}}}}}})
}

func (r *MongoRepository) PullFile(ctx context.Context, id, fileID string) error {
	return r.update(ctx,
		bson.D{{Key: "id", Value: id}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "files", Value: bson.D{{Key: "id", Value: fileID}}}}}})
}

func (r *MongoRepository) SetFileName(ctx context.Context, id, fileID, name string) error {
	return r.update(ctx,
		bson.D{{Key: "id", Value: id}, {Key: "files.id", Value: fileID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "files.$.name", Value: name}}}})
}
