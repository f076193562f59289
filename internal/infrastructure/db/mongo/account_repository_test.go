package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestClassifyWriteError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	if err := classifyWriteError(dup); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	other := errors.New("server selection timeout")
	err := classifyWriteError(other)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, other) {
		t.Fatalf("original cause lost: %v", err)
	}
}

func TestDocumentMapping(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := &domain.Account{
		ID:           "8d5e0d3c-6c0e-4f7a-9b7e-1f2a3b4c5d6e",
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		Roles:        []string{"USER", "ADMIN"},
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	doc := toDocument(a)
	if doc.ID != a.ID || doc.Username != "alice" || doc.CreatedAt != created.Unix() {
		t.Fatalf("unexpected document: %+v", doc)
	}

	back := fromDocument(doc)
	if back.ID != a.ID || back.PasswordHash != a.PasswordHash || !back.CreatedAt.Equal(created) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if len(back.Roles) != 2 || back.Roles[1] != "ADMIN" {
		t.Fatalf("roles lost: %v", back.Roles)
	}
}

func TestFromDocument_EmptyRolesGetDefault(t *testing.T) {
	back := fromDocument(mongoAccount{ID: "x", Username: "legacy"})
	if len(back.Roles) != 1 || back.Roles[0] != domain.RoleUser {
		t.Fatalf("expected default roles, got %v", back.Roles)
	}
	if !back.CreatedAt.IsZero() {
		t.Fatalf("expected zero created_at, got %v", back.CreatedAt)
	}
}
