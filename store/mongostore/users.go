package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/MrEthical07/goIAM/store"
)

func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return findOne[store.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return findOne[store.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func userListFilter(q string) bson.D {
	if q == "" {
		return bson.D{}
	}
	rx := containsRegex(q)
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: rx}},
		bson.D{{Key: "name", Value: rx}},
	}}}
}

func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]*store.User, int64, error) {
	q := userListFilter(filter.Query)

	total, err := s.col(ColUsers).CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, wrapError(err)
	}

	opts := pageOptions(filter.Skip, filter.Limit, bson.D{{Key: "createdAt", Value: -1}})
	users, err := findMany[store.User](ctx, s.col(ColUsers), q, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// userPatchUpdate builds the $set and $unset documents for patch. An empty
// externalId is unset so the sparse unique index ignores the document.
func userPatchUpdate(patch store.UserPatch, now time.Time) (set, unset bson.D) {
	set = bson.D{{Key: "updatedAt", Value: now}}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.ExternalID != nil {
		if *patch.ExternalID == "" {
			unset = append(unset, bson.E{Key: "externalId", Value: ""})
		} else {
			set = append(set, bson.E{Key: "externalId", Value: *patch.ExternalID})
		}
	}
	if patch.Roles != nil {
		set = append(set, bson.E{Key: "roles", Value: *patch.Roles})
	}
	if patch.Perms != nil {
		set = append(set, bson.E{Key: "perms", Value: *patch.Perms})
	}
	if patch.Active != nil {
		set = append(set, bson.E{Key: "active", Value: *patch.Active})
	}
	return set, unset
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*store.User, error) {
	set, unset := userPatchUpdate(patch, s.now().UTC())
	return findOneAndSet[store.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}}, set, unset)
}

func credentialsFilter(id, expectedHash string, creds store.Credentials) bson.D {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "passwordHash", Value: orMissing(expectedHash, expectedHash == "")},
	}
	if creds.CodeSentAt != nil {
		filter = append(filter, bson.E{Key: "passwordResetCode.sentAt", Value: *creds.CodeSentAt})
	}
	return filter
}

func (s *Store) UpdateCredentials(ctx context.Context, id, expectedHash string, creds store.Credentials) error {
	filter := credentialsFilter(id, expectedHash, creds)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "passwordHash", Value: creds.PasswordHash},
		{Key: "passwordChangedAt", Value: creds.PasswordChangedAt},
		{Key: "passwordExpiresAt", Value: creds.PasswordExpiresAt},
		{Key: "mustChangePassword", Value: creds.MustChangePassword},
		{Key: "passwordResetCode", Value: store.ResetCode{}},
		{Key: "updatedAt", Value: s.now().UTC()},
	}}}

	res, err := s.col(ColUsers).UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

func resetCodeFilter(id string, expected store.ResetCode) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "passwordResetCode.hash", Value: orMissing(expected.Hash, expected.Hash == "")},
		{Key: "passwordResetCode.attempts", Value: orMissing(expected.Attempts, expected.Attempts == 0)},
	}
}

func (s *Store) UpdateResetCode(ctx context.Context, id string, expected, next store.ResetCode) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "passwordResetCode", Value: next},
		{Key: "updatedAt", Value: s.now().UTC()},
	}}}

	res, err := s.col(ColUsers).UpdateOne(ctx, resetCodeFilter(id, expected), update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

func (s *Store) conflictOrNotFound(ctx context.Context, id string) error {
	n, err := s.col(ColUsers).CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByFilter(ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}
