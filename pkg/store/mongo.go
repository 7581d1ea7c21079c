package store

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// DefaultCollection holds snapshots in a MongoDB database.
const DefaultCollection = "snapshots"

// MongoStore keeps snapshots in a MongoDB collection indexed by session
// and seq.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and uses collection in database.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}
	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "seq", Value: -1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create snapshot index")
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Save(ctx context.Context, snap *Snapshot) error {
	filter := bson.M{"session_id": snap.SessionID, "seq": snap.Seq}
	_, err := s.coll.ReplaceOne(ctx, filter, snap, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "save snapshot %s/%d", snap.SessionID, snap.Seq)
	}
	return nil
}

func (s *MongoStore) Latest(ctx context.Context, sessionID string) (*Snapshot, error) {
	var snap Snapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&snap)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load snapshot of %s", sessionID)
	}
	return &snap, nil
}

func (s *MongoStore) List(ctx context.Context, sessionID string, limit int) ([]*Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list snapshots of %s", sessionID)
	}
	var out []*Snapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode snapshots of %s", sessionID)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete snapshots of %s", sessionID)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
