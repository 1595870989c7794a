package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/MrEthical07/goIAM/store"
)

func (s *Store) InsertAudit(ctx context.Context, entry *store.AuditEntry) error {
	return insertOne(ctx, s.col(ColAudit), entry)
}

func auditListFilter(f store.AuditFilter) bson.D {
	filter := bson.D{}
	if f.Action != "" {
		filter = append(filter, bson.E{Key: "action", Value: f.Action})
	}
	if f.Actor != "" {
		filter = append(filter, bson.E{Key: "actor", Value: f.Actor})
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		rng := bson.D{}
		if !f.From.IsZero() {
			rng = append(rng, bson.E{Key: "$gte", Value: f.From})
		}
		if !f.To.IsZero() {
			rng = append(rng, bson.E{Key: "$lte", Value: f.To})
		}
		filter = append(filter, bson.E{Key: "createdAt", Value: rng})
	}
	return filter
}

func (s *Store) ListAudit(ctx context.Context, f store.AuditFilter) ([]*store.AuditEntry, int64, error) {
	filter := auditListFilter(f)

	total, err := s.col(ColAudit).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError(err)
	}

	opts := pageOptions(f.Skip, f.Limit, bson.D{{Key: "createdAt", Value: -1}})
	entries, err := findMany[store.AuditEntry](ctx, s.col(ColAudit), filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Store) DeleteAuditBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col(ColAudit).DeleteMany(ctx, bson.D{{Key: "createdAt", Value: bson.D{{Key: "$lt", Value: before}}}})
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}
