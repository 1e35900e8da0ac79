package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/database"
	"github.com/rankrunner/rankrunner/internal/models"
)

// userDoc is the store shape. ObjectIDs never leak past this file; the
// canonical models.User carries the hex string form.
type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Points    int                `bson:"points"`
	AvatarURL string             `bson:"avatarUrl"`
	Rank      int                `bson:"rank"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Points:    d.Points,
		AvatarURL: d.AvatarURL,
		Rank:      d.Rank,
	}
}

type mongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(client *database.MongoClient) UserRepository {
	return &mongoUserRepo{coll: client.Collection(UsersCollection)}
}

func (r *mongoUserRepo) List(ctx context.Context) ([]models.User, error) {
	// _id ascending is creation order for ObjectIDs, which pins the
	// tie-break for equal point totals.
	sort := bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}

	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to list users")
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to decode users")
	}

	users := make([]models.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toModel()
	}

	return users, nil
}

func (r *mongoUserRepo) Insert(ctx context.Context, name, avatarURL string, provisionalRank int) (*models.User, error) {
	doc := userDoc{
		Name:      name,
		Points:    0,
		AvatarURL: avatarURL,
		Rank:      provisionalRank,
	}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to insert user")
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, apperrors.New(apperrors.CodeDatabase, fmt.Sprintf("unexpected inserted id type %T", result.InsertedID))
	}

	doc.ID = id
	return doc.toModel(), nil
}

func (r *mongoUserRepo) IncrementPoints(ctx context.Context, userID string, delta int) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"points": delta}},
		opts,
	).Decode(&doc)

	if err == mongo.ErrNoDocuments {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to increment points")
	}

	return doc.toModel(), nil
}

func (r *mongoUserRepo) ReassignRanks(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("invalid user id %q", id))
		}

		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": oid}).
			SetUpdate(bson.M{"$set": bson.M{"rank": i + 1}}))
	}

	if _, err := r.coll.BulkWrite(ctx, writes); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabase, "failed to reassign ranks")
	}

	return nil
}

func (r *mongoUserRepo) FindByID(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	var doc userDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to find user")
	}

	return doc.toModel(), nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to count users")
	}
	return count, nil
}
