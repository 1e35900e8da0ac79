package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/database"
	"github.com/rankrunner/rankrunner/internal/models"
)

type historyDoc struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	UserID                primitive.ObjectID `bson:"userId"`
	PointsClaimed         int                `bson:"pointsClaimed"`
	Timestamp             time.Time          `bson:"timestamp"`
	TotalPointsAfterClaim int                `bson:"totalPointsAfterClaim"`
}

// historyWithUserDoc matches the $project stage of the join pipeline.
type historyWithUserDoc struct {
	ID                    primitive.ObjectID `bson:"_id"`
	PointsClaimed         int                `bson:"pointsClaimed"`
	Timestamp             time.Time          `bson:"timestamp"`
	TotalPointsAfterClaim int                `bson:"totalPointsAfterClaim"`
	UserName              string             `bson:"userName"`
	UserAvatarURL         string             `bson:"userAvatarUrl"`
}

type mongoHistoryRepo struct {
	coll *mongo.Collection
}

func NewMongoHistoryRepository(client *database.MongoClient) HistoryRepository {
	return &mongoHistoryRepo{coll: client.Collection(HistoryCollection)}
}

func (r *mongoHistoryRepo) Append(ctx context.Context, entry *models.PointHistory) error {
	oid, err := primitive.ObjectIDFromHex(entry.UserID)
	if err != nil {
		return apperrors.New(apperrors.CodeNotFound, "user not found")
	}

	doc := historyDoc{
		UserID:                oid,
		PointsClaimed:         entry.PointsClaimed,
		Timestamp:             entry.Timestamp,
		TotalPointsAfterClaim: entry.TotalPointsAfterClaim,
	}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabase, "failed to append history entry")
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = id.Hex()
	}

	return nil
}

func (r *mongoHistoryRepo) ListRecent(ctx context.Context, limit int64) ([]models.PointHistoryWithUser, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// History shows the claimer's current name and avatar, so the join
	// runs against live user records instead of denormalized snapshots.
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "userId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userDetails"},
		}}},
		{{Key: "$unwind", Value: "$userDetails"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "pointsClaimed", Value: 1},
			{Key: "timestamp", Value: 1},
			{Key: "totalPointsAfterClaim", Value: 1},
			{Key: "userName", Value: "$userDetails.name"},
			{Key: "userAvatarUrl", Value: "$userDetails.avatarUrl"},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to query history")
	}
	defer cursor.Close(ctx)

	var docs []historyWithUserDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "failed to decode history")
	}

	entries := make([]models.PointHistoryWithUser, len(docs))
	for i, d := range docs {
		entries[i] = models.PointHistoryWithUser{
			ID:                    d.ID.Hex(),
			UserName:              d.UserName,
			UserAvatarURL:         d.UserAvatarURL,
			PointsClaimed:         d.PointsClaimed,
			Timestamp:             d.Timestamp,
			TotalPointsAfterClaim: d.TotalPointsAfterClaim,
		}
	}

	return entries, nil
}
