package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	tokensCollection   = "refresh_tokens"
)

// MongoConfig contains MongoDB connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoStorage implements Storage on top of a MongoDB document store.
type MongoStorage struct {
	config *MongoConfig
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger

	users    *mongoUserRepo
	projects *mongoProjectRepo
	tokens   *mongoTokenRepo
}

// NewMongoStorage creates a new MongoDB storage.
func NewMongoStorage(cfg *MongoConfig, logger *zap.Logger) *MongoStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &MongoStorage{config: cfg, logger: logger}
}

// Open connects to the server and verifies it is reachable.
func (s *MongoStorage) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(s.config.URI).
		SetServerSelectionTimeout(s.config.ConnectTimeout))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}

	s.client = client
	s.db = client.Database(s.config.Database)

	s.users = &mongoUserRepo{coll: s.db.Collection(usersCollection)}
	s.projects = &mongoProjectRepo{coll: s.db.Collection(projectsCollection)}
	s.tokens = &mongoTokenRepo{coll: s.db.Collection(tokensCollection)}

	s.logger.Debug("mongo connected", zap.String("database", s.config.Database))
	return nil
}

// Close disconnects the client.
func (s *MongoStorage) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Migrate creates the unique indexes the repositories rely on.
func (s *MongoStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{
				Keys:    bson.D{{Key: "title", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("title_user_id"),
			},
		},
		tokensCollection: {
			{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	s.logger.Info("mongo indexes ensured", zap.String("database", s.config.Database))
	return nil
}

// Ping verifies the server is reachable.
func (s *MongoStorage) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("mongo not connected")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Name returns the backend name.
func (s *MongoStorage) Name() string {
	return "mongo"
}

// Users returns the user repository.
func (s *MongoStorage) Users() UserRepository {
	return s.users
}

// Projects returns the project repository.
func (s *MongoStorage) Projects() ProjectRepository {
	return s.projects
}

// Tokens returns the token repository.
func (s *MongoStorage) Tokens() TokenRepository {
	return s.tokens
}

// objectID parses a hex id. Malformed ids cannot match any document.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func mongoWriteErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
