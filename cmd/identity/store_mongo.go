package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements Backend over a MongoDB collection.
//
// The user id is the document _id and email carries a unique index, so a
// re-key is a single-document ReplaceOne: MongoDB applies it atomically and
// the index rejects a taken email without touching either document.
// The client is owned by the caller.
type MongoStore struct {
	coll *mongo.Collection
}

// MongoOption configures the store.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

// WithCollection sets the collection name (default "users").
func WithCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name = strings.TrimSpace(name); name != "" {
			o.collection = name
		}
	}
}

const mongoEmailIndex = "uq_users_email"

type mongoUser struct {
	ID       string `bson:"_id"`
	Email    string `bson:"email"`
	Password string `bson:"password"`
	Name     string `bson:"name"`

	MobileNumber      *string `bson:"mobileNumber"`
	AlternativeNumber *string `bson:"alternativeNumber"`
	AadharNumber      *string `bson:"aadharNumber"`
	Avatar            *string `bson:"avatar"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toMongoUser(u User) mongoUser {
	return mongoUser{
		ID:                u.ID,
		Email:             u.Email,
		Password:          u.Password,
		Name:              u.Name,
		MobileNumber:      u.MobileNumber,
		AlternativeNumber: u.AlternativeNumber,
		AadharNumber:      u.AadharNumber,
		Avatar:            u.Avatar,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (m mongoUser) toUser() User {
	return User{
		ID:                m.ID,
		Email:             m.Email,
		Password:          m.Password,
		Name:              m.Name,
		MobileNumber:      m.MobileNumber,
		AlternativeNumber: m.AlternativeNumber,
		AadharNumber:      m.AadharNumber,
		Avatar:            m.Avatar,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

// NewMongoStore constructs a MongoStore over db and ensures the email index.
func NewMongoStore(ctx context.Context, db *mongo.Database, opts ...MongoOption) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil mongo database")
	}
	o := mongoOptions{collection: "users"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	coll := db.Collection(o.collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName(mongoEmailIndex).SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("identity: ensure mongo email index: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

// GetByEmail returns the user stored under email.
func (s *MongoStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, "identity.MongoStore.GetByEmail", bson.M{"email": email})
}

// GetByID returns the user with id.
func (s *MongoStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, "identity.MongoStore.GetByID", bson.M{"_id": id})
}

func (s *MongoStore) findOne(ctx context.Context, op string, filter bson.M) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	var doc mongoUser
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return doc.toUser(), nil
}

// Insert stores u; duplicate keys map to ConflictError.
func (s *MongoStore) Insert(ctx context.Context, u User) error {
	const op = "identity.MongoStore.Insert"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" || u.Email == "" {
		return invalid(op, "missing id or email")
	}

	if _, err := s.coll.InsertOne(ctx, toMongoUser(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ConflictError{Op: op, Field: mongoDuplicateField(err)}
		}
		return err
	}
	return nil
}

// Update replaces the document keyed by currentEmail and u.ID.
func (s *MongoStore) Update(ctx context.Context, currentEmail string, u User) error {
	const op = "identity.MongoStore.Update"

	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Email == "" {
		return invalid(op, "missing email")
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID, "email": currentEmail}, toMongoUser(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ConflictError{Op: op, Field: "email"}
		}
		return err
	}
	if res.MatchedCount == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// mongoDuplicateField names the key a duplicate-key error was raised for.
func mongoDuplicateField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, mongoEmailIndex) || strings.Contains(e.Message, "email") {
				return "email"
			}
		}
		return "id"
	}
	if strings.Contains(err.Error(), mongoEmailIndex) {
		return "email"
	}
	return "id"
}
