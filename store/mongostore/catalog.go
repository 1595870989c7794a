package mongostore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/goIAM/store"
)

// ============================================================================
// Roles
// ============================================================================

func (s *Store) ListRoles(ctx context.Context) ([]*store.Role, error) {
	opts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}})
	return findMany[store.Role](ctx, s.col(ColRoles), bson.D{}, opts)
}

func (s *Store) GetRole(ctx context.Context, id string) (*store.Role, error) {
	return findOne[store.Role](ctx, s.col(ColRoles), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetRolesByKeys(ctx context.Context, keys []string) ([]*store.Role, error) {
	if len(keys) == 0 {
		return []*store.Role{}, nil
	}
	normalized := make(bson.A, 0, len(keys))
	for _, k := range keys {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(k)))
	}
	filter := bson.D{{Key: "key", Value: bson.D{{Key: "$in", Value: normalized}}}}
	return findMany[store.Role](ctx, s.col(ColRoles), filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
}

func (s *Store) CreateRole(ctx context.Context, role *store.Role) error {
	return insertOne(ctx, s.col(ColRoles), role)
}

func (s *Store) UpdateRole(ctx context.Context, id string, patch store.RolePatch) (*store.Role, error) {
	set := bson.D{{Key: "updatedAt", Value: s.now().UTC()}}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Permissions != nil {
		set = append(set, bson.E{Key: "permissions", Value: *patch.Permissions})
	}
	return findOneAndSet[store.Role](ctx, s.col(ColRoles), bson.D{{Key: "_id", Value: id}}, set, nil)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return deleteByFilter(ctx, s.col(ColRoles), bson.D{{Key: "_id", Value: id}})
}

// ============================================================================
// Permissions
// ============================================================================

func (s *Store) ListPermissions(ctx context.Context) ([]*store.Permission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "group", Value: 1}, {Key: "order", Value: 1}, {Key: "key", Value: 1}})
	return findMany[store.Permission](ctx, s.col(ColPermissions), bson.D{}, opts)
}

func (s *Store) CreatePermission(ctx context.Context, perm *store.Permission) error {
	return insertOne(ctx, s.col(ColPermissions), perm)
}

func (s *Store) UpdatePermission(ctx context.Context, id string, patch store.PermissionPatch) (*store.Permission, error) {
	set := bson.D{{Key: "updatedAt", Value: s.now().UTC()}}
	if patch.Key != nil {
		set = append(set, bson.E{Key: "key", Value: *patch.Key})
	}
	if patch.Label != nil {
		set = append(set, bson.E{Key: "label", Value: *patch.Label})
	}
	if patch.Group != nil {
		set = append(set, bson.E{Key: "group", Value: *patch.Group})
	}
	if patch.Order != nil {
		set = append(set, bson.E{Key: "order", Value: *patch.Order})
	}
	return findOneAndSet[store.Permission](ctx, s.col(ColPermissions), bson.D{{Key: "_id", Value: id}}, set, nil)
}

func (s *Store) DeletePermission(ctx context.Context, id string) error {
	return deleteByFilter(ctx, s.col(ColPermissions), bson.D{{Key: "_id", Value: id}})
}

// UpsertPermissions writes the catalog in one unordered bulk call keyed by permission key.
func (s *Store) UpsertPermissions(ctx context.Context, perms []store.Permission) (int, error) {
	if len(perms) == 0 {
		return 0, nil
	}
	now := s.now().UTC()

	models := make([]mongo.WriteModel, 0, len(perms))
	for _, p := range perms {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "key", Value: p.Key}}).
			SetUpdate(bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "label", Value: p.Label},
					{Key: "group", Value: p.Group},
					{Key: "order", Value: p.Order},
					{Key: "updatedAt", Value: now},
				}},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "_id", Value: id},
					{Key: "createdAt", Value: now},
				}},
			}).
			SetUpsert(true))
	}

	res, err := s.col(ColPermissions).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, wrapError(err)
	}
	return int(res.UpsertedCount + res.ModifiedCount), nil
}
