package mongostore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/goIAM/store"
)

func (s *Store) GetParameter(ctx context.Context, key string) (*store.Parameter, error) {
	return findOne[store.Parameter](ctx, s.col(ColParameters), bson.D{{Key: "key", Value: store.NormalizeParameterKey(key)}})
}

func (s *Store) ListParameters(ctx context.Context, category string) ([]*store.Parameter, error) {
	filter := bson.D{}
	if c := strings.TrimSpace(category); c != "" {
		filter = bson.D{{Key: "category", Value: c}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "key", Value: 1}})
	return findMany[store.Parameter](ctx, s.col(ColParameters), filter, opts)
}

func (s *Store) UpsertParameter(ctx context.Context, param *store.Parameter) error {
	key := store.NormalizeParameterKey(param.Key)
	updatedAt := param.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "key", Value: key},
		{Key: "value", Value: param.Value},
		{Key: "description", Value: param.Description},
		{Key: "category", Value: param.Category},
		{Key: "dataType", Value: param.DataType},
		{Key: "updatedBy", Value: param.UpdatedBy},
		{Key: "updatedAt", Value: updatedAt},
	}}}
	_, err := s.col(ColParameters).UpdateOne(ctx, bson.D{{Key: "key", Value: key}}, update, options.UpdateOne().SetUpsert(true))
	return wrapError(err)
}

func (s *Store) DeleteParameter(ctx context.Context, key string) error {
	return deleteByFilter(ctx, s.col(ColParameters), bson.D{{Key: "key", Value: store.NormalizeParameterKey(key)}})
}
