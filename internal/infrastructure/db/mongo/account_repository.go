package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const accountCollection = "accounts"

var _ ports.CredentialStore = (*AccountRepository)(nil)

// AccountRepository implements ports.CredentialStore on MongoDB. Username
// uniqueness relies on the index created by EnsureIndexes.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID           string   `bson:"_id"`
	Username     string   `bson:"username"`
	PasswordHash string   `bson:"password_hash"`
	Roles        []string `bson:"roles"`
	CreatedAt    int64    `bson:"created_at"`
	UpdatedAt    int64    `bson:"updated_at"`
}

// EnsureIndexes creates the unique username index. Safe to call on every start.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(account)); err != nil {
		return classifyWriteError(err)
	}
	return nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return fromDocument(doc), nil
}

// Ping reports whether the backing database is reachable.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func classifyWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("insert account: %w: %w", domain.ErrStoreUnavailable, err)
}

func toDocument(a *domain.Account) mongoAccount {
	return mongoAccount{
		ID:           a.ID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Roles:        domain.NormalizeRoles(a.Roles),
		CreatedAt:    a.CreatedAt.Unix(),
		UpdatedAt:    a.UpdatedAt.Unix(),
	}
}

func fromDocument(doc mongoAccount) *domain.Account {
	return &domain.Account{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		Roles:        domain.NormalizeRoles(doc.Roles),
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
