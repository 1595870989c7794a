package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/goIAM/store"
)

// wrapError maps driver errors onto store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	var result T
	if err := col.FindOne(ctx, filter).Decode(&result); err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []*T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

func deleteByFilter(ctx context.Context, col *mongo.Collection, filter bson.D) error {
	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// findOneAndSet applies $set (and optional $unset) to the document matching
// filter and decodes the updated document.
func findOneAndSet[T any](ctx context.Context, col *mongo.Collection, filter, set, unset bson.D) (*T, error) {
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

// pageOptions converts skip/limit into find options after clamping.
func pageOptions(skip, limit int, sort bson.D) *options.FindOptionsBuilder {
	if skip < 0 {
		skip = 0
	}
	return options.Find().
		SetSort(sort).
		SetSkip(int64(skip)).
		SetLimit(int64(store.ClampLimit(limit)))
}

// containsRegex builds a case-insensitive literal substring match.
func containsRegex(q string) bson.Regex {
	return bson.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(q)), Options: "i"}
}

// orMissing matches the given zero value or an absent/null field, so that
// documents written before the field existed compare equal to a zero expectation.
func orMissing(value any, zero bool) any {
	if !zero {
		return value
	}
	return bson.D{{Key: "$in", Value: bson.A{value, nil}}}
}
