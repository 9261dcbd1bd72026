package lockfile

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// Mongo defaults used when MongoOptions leaves them empty.
const (
	DefaultMongoDatabase   = "flowc"
	DefaultMongoCollection = "versions"
)

// MongoOptions configures [NewMongoStore].
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MongoStore keeps one document per flow alias:
//
//	{_id: "checkout", min_sdk_version: 16, max_sdk_version: 30, updated_at: ...}
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

type versionDoc struct {
	Alias         string    `bson:"_id"`
	MinSdkVersion int64     `bson:"min_sdk_version"`
	MaxSdkVersion *int64    `bson:"max_sdk_version,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.Database == "" {
		opts.Database = DefaultMongoDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultMongoCollection
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI).SetConnectTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: opts.Timeout,
		now:     time.Now,
	}, nil
}

// Save upserts one document per alias and removes documents for aliases
// that are no longer present.
func (s *MongoStore) Save(ctx context.Context, v Versions) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	aliases := make([]string, 0, len(v))
	models := make([]mongo.WriteModel, 0, len(v))
	for alias, iv := range v {
		doc, err := toDoc(alias, iv, now)
		if err != nil {
			return err
		}
		aliases = append(aliases, alias)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": alias}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if len(models) > 0 {
		if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("upsert versions: %w", err)
		}
	}
	if _, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": aliases}}); err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context) (Versions, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find versions: %w", err)
	}
	defer cur.Close(ctx)

	out := Versions{}
	for cur.Next(ctx) {
		var d versionDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode version: %w", err)
		}
		out[d.Alias] = fromDoc(d)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// toDoc fails for versions BSON cannot hold as int64.
func toDoc(alias string, iv sdk.Interval, now time.Time) (versionDoc, error) {
	lo := iv.Min()
	if lo > sdk.MaxVersion {
		return versionDoc{}, errors.New(errors.ErrCodeInvalidInput,
			"flow %q: minimum version %d exceeds %d", alias, lo, sdk.MaxVersion)
	}
	d := versionDoc{Alias: alias, MinSdkVersion: int64(lo), UpdatedAt: now}
	if hi, ok := iv.Max(); ok {
		if hi > sdk.MaxVersion {
			return versionDoc{}, errors.New(errors.ErrCodeInvalidInput,
				"flow %q: maximum version %d exceeds %d", alias, hi, sdk.MaxVersion)
		}
		m := int64(hi)
		d.MaxSdkVersion = &m
	}
	return d, nil
}

func fromDoc(d versionDoc) sdk.Interval {
	if d.MaxSdkVersion != nil {
		return sdk.Between(uint64(d.MinSdkVersion), uint64(*d.MaxSdkVersion))
	}
	return sdk.AtLeast(uint64(d.MinSdkVersion))
}

var _ Store = (*MongoStore)(nil)
