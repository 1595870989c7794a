// Package mongostore implements store.Store on MongoDB.
//
// Uses mongo-go-driver v2 with bson tags on the store records. Collection
// names and indexes are managed in one place by ensureIndexes.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/goIAM/store"
)

// Collection names.
const (
	ColUsers       = "iam_users"
	ColRoles       = "iam_roles"
	ColPermissions = "iam_permissions"
	ColParameters  = "system_parameters"
	ColAudit       = "audit_logs"
)

var _ store.Store = (*Store)(nil)

// Store is the MongoDB-backed store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// NewStore connects to uri, pings the server and ensures indexes on dbName.
// Index creation failures are returned: the unique indexes carry the email and
// key uniqueness guarantees.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), now: time.Now}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ensure indexes failed: %w", err)
	}

	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks server reachability; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
		sparse bool
	}

	indexes := []idx{
		// users
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true, false},
		{ColUsers, bson.D{{Key: "externalId", Value: 1}}, true, true},
		{ColUsers, bson.D{{Key: "createdAt", Value: -1}}, false, false},

		// roles
		{ColRoles, bson.D{{Key: "key", Value: 1}}, true, false},

		// permissions
		{ColPermissions, bson.D{{Key: "key", Value: 1}}, true, false},
		{ColPermissions, bson.D{{Key: "group", Value: 1}, {Key: "order", Value: 1}}, false, false},

		// system parameters
		{ColParameters, bson.D{{Key: "key", Value: 1}}, true, false},
		{ColParameters, bson.D{{Key: "category", Value: 1}}, false, false},

		// audit
		{ColAudit, bson.D{{Key: "createdAt", Value: -1}}, false, false},
		{ColAudit, bson.D{{Key: "action", Value: 1}, {Key: "createdAt", Value: -1}}, false, false},
		{ColAudit, bson.D{{Key: "actor", Value: 1}, {Key: "createdAt", Value: -1}}, false, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique || i.sparse {
			opts := options.Index()
			if i.unique {
				opts.SetUnique(true)
			}
			if i.sparse {
				opts.SetSparse(true)
			}
			model.Options = opts
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
