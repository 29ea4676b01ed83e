// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/model"
)

const (
	actsCollection   = "acts"
	metaCollection   = "actMetadata"
	errorsCollection = "dataUpdateErrors"

	// Journal entries expire this long after createdAt.
	errorTTL = 7 * 24 * time.Hour

	recentErrorsLimit = 100
)

// Mongo is the MongoDB-backed Store. The client handle is established
// lazily and reset after connection-class failures, so a broken backend
// never leaves the store permanently wedged: the next call redials.
type Mongo struct {
	uri    string
	dbName string

	mu     sync.Mutex
	client *mongo.Client
}

// NewMongo creates a store for the given connection string and database.
// No connection is attempted until the first operation.
func NewMongo(uri, dbName string) *Mongo {
	return &Mongo{uri: uri, dbName: dbName}
}

func (m *Mongo) database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client.Database(m.dbName), nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.uri))
	if err != nil {
		return nil, newError(ErrUnavailable, CodeConnect, "connect", err)
	}
	m.client = client
	return client.Database(m.dbName), nil
}

// reset drops the client handle after a connection-class failure so the
// next call re-attempts the dial.
func (m *Mongo) reset(err error) {
	if err == nil || !isConnectionError(err) {
		return
	}
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
}

func isConnectionError(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded)
}

// wrap converts a driver error into a kinded store error and resets the
// connection handle when appropriate.
func (m *Mongo) wrap(code, op string, err error) error {
	m.reset(err)
	sentinel := ErrUnavailable
	switch {
	case mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrTimeout
	case isUnacknowledged(err):
		sentinel = ErrNotAcknowledged
	}
	return newError(sentinel, code, op, err)
}

func isUnacknowledged(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) && we.WriteConcernError != nil {
		return true
	}
	var bwe mongo.BulkWriteException
	return errors.As(err, &bwe) && bwe.WriteConcernError != nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*model.Act, error) {
	db, err := m.database(ctx)
	if err != nil {
		return nil, err
	}
	var act model.Act
	err = db.Collection(actsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&act)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, newError(ErrNotFound, CodeGet, "get", nil)
	}
	if err != nil {
		return nil, m.wrap(CodeGet, "get", err)
	}
	return &act, nil
}

func (m *Mongo) Put(ctx context.Context, act *model.Act) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	_, err = db.Collection(actsCollection).ReplaceOne(
		ctx,
		bson.M{"_id": act.ID},
		act,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return m.wrap(CodePut, "put", err)
	}

	// Best effort: a lost counter increment must not fail the write.
	_, err = db.Collection(metaCollection).UpdateOne(
		ctx,
		bson.M{"_id": act.ID},
		bson.M{
			"$inc":         bson.M{"updatesSinceLastRequest": 1},
			"$setOnInsert": bson.M{"lastRequestedAt": ""},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		m.reset(err)
		logger := log.WithComponent("store")
		logger.Warn().
			Err(err).
			Str("event", "store.meta_increment_failed").
			Str("id", act.ID).
			Msg("failed to bump update counter")
	}
	return nil
}

func (m *Mongo) Probe(ctx context.Context) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	col := db.Collection(actsCollection)
	_, err = col.ReplaceOne(
		ctx,
		bson.M{"_id": ProbeID},
		bson.M{"_id": ProbeID, "probe": true},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return m.wrap(CodeProbeWrite, "probe write", err)
	}
	if _, err := col.DeleteOne(ctx, bson.M{"_id": ProbeID}); err != nil {
		return m.wrap(CodeProbeDelete, "probe delete", err)
	}
	return nil
}

func (m *Mongo) ListIDs(ctx context.Context) ([]string, error) {
	stamps, err := m.listStamps(ctx, CodeListIDs, "list ids")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stamps))
	for _, s := range stamps {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (m *Mongo) ListWithUpdatedAt(ctx context.Context) ([]model.ActStamp, error) {
	return m.listStamps(ctx, CodeListStamps, "list stamps")
}

func (m *Mongo) listStamps(ctx context.Context, code, op string) ([]model.ActStamp, error) {
	db, err := m.database(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(actsCollection).Find(
		ctx,
		bson.M{"_id": bson.M{"$ne": ProbeID}},
		options.Find().
			SetProjection(bson.M{"_id": 1, "updatedAt": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, m.wrap(code, op, err)
	}
	var stamps []model.ActStamp
	if err := cur.All(ctx, &stamps); err != nil {
		return nil, m.wrap(code, op, err)
	}
	return stamps, nil
}

func (m *Mongo) ListWithoutBandsintown(ctx context.Context) ([]string, error) {
	db, err := m.database(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(actsCollection).Find(
		ctx,
		bson.M{
			"_id":                   bson.M{"$ne": ProbeID},
			"relations.bandsintown": bson.M{"$in": bson.A{nil, ""}},
		},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, m.wrap(CodeListNoBIT, "list uncovered", err)
	}
	var stamps []model.ActStamp
	if err := cur.All(ctx, &stamps); err != nil {
		return nil, m.wrap(CodeListNoBIT, "list uncovered", err)
	}
	ids := make([]string, 0, len(stamps))
	for _, s := range stamps {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (m *Mongo) TouchLastRequested(ctx context.Context, ids []string) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	now := model.Stamp(time.Now())
	models := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{
				"lastRequestedAt":         now,
				"updatesSinceLastRequest": 0,
			}}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(metaCollection).BulkWrite(ctx, models); err != nil {
		return m.wrap(CodeTouch, "touch last requested", err)
	}
	return nil
}

func (m *Mongo) EvictInactive(ctx context.Context) (int, error) {
	db, err := m.database(ctx)
	if err != nil {
		return 0, err
	}
	cur, err := db.Collection(metaCollection).Find(
		ctx,
		bson.M{"updatesSinceLastRequest": bson.M{"$gte": EvictionThreshold}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return 0, m.wrap(CodeEvictFind, "evict find", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, m.wrap(CodeEvictFind, "evict find", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	res, err := db.Collection(actsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, m.wrap(CodeEvictDelete, "evict acts", err)
	}
	if _, err := db.Collection(metaCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return 0, m.wrap(CodeEvictDelete, "evict metadata", err)
	}
	return int(res.DeletedCount), nil
}

func (m *Mongo) Clear(ctx context.Context) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	if _, err := db.Collection(actsCollection).DeleteMany(ctx, bson.M{}); err != nil {
		return m.wrap(CodeClear, "clear", err)
	}
	return nil
}

func (m *Mongo) LogUpdateError(ctx context.Context, e model.UpdateError) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if _, err := db.Collection(errorsCollection).InsertOne(ctx, e); err != nil {
		return m.wrap(CodeLogError, "log update error", err)
	}
	return nil
}

func (m *Mongo) RecentErrors(ctx context.Context) ([]model.UpdateError, error) {
	db, err := m.database(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(errorsCollection).Find(
		ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetLimit(recentErrorsLimit),
	)
	if err != nil {
		return nil, m.wrap(CodeRecentErrors, "recent errors", err)
	}
	var out []model.UpdateError
	if err := cur.All(ctx, &out); err != nil {
		return nil, m.wrap(CodeRecentErrors, "recent errors", err)
	}
	return out, nil
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	db, err := m.database(ctx)
	if err != nil {
		return err
	}
	_, err = db.Collection(errorsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(errorTTL / time.Second)),
	})
	if err != nil {
		return m.wrap(CodeEnsureIndex, "ensure error ttl index", err)
	}
	_, err = db.Collection(metaCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updatesSinceLastRequest", Value: 1}},
	})
	if err != nil {
		return m.wrap(CodeEnsureIndex, "ensure metadata index", err)
	}
	return nil
}

// Close tears down the client handle. Safe to call on a never-connected
// store.
func (m *Mongo) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
