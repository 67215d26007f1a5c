package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore stores blobs as GridFS files named by key. Writing an existing
// key adds a revision; reads return the newest one.
type GridFSStore struct {
	client *mongo.Client
	db     *mongo.Database
	name   string
}

// NewGridFSStore connects to MongoDB and opens bucketName in database
func NewGridFSStore(ctx context.Context, uri, database, bucketName string) (*GridFSStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := newGridFSStore(client, database, bucketName)
	if _, err := store.bucketFor(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func newGridFSStore(client *mongo.Client, database, bucketName string) *GridFSStore {
	return &GridFSStore{client: client, db: client.Database(database), name: bucketName}
}

// bucketFor opens a bucket handle bounded by ctx's deadline. Upload and
// download take no context, and deadlines are per handle, so every call
// gets its own.
func (s *GridFSStore) bucketFor(ctx context.Context) (*gridfs.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.name))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket %s: %w", s.name, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set gridfs write deadline: %w", err)
		}
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set gridfs read deadline: %w", err)
		}
	}
	return bucket, nil
}

func (s *GridFSStore) Put(ctx context.Context, key string, data []byte) error {
	bucket, err := s.bucketFor(ctx)
	if err != nil {
		return err
	}
	if _, err := bucket.UploadFromStream(key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *GridFSStore) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, err := s.bucketFor(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := bucket.DownloadToStreamByName(key, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *GridFSStore) List(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	bucket, err := s.bucketFor(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := bucket.FindContext(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		Name string `bson:"filename"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to read listing for %s: %w", prefix, err)
	}

	seen := make(map[string]struct{}, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		keys = append(keys, f.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close disconnects from MongoDB
func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
