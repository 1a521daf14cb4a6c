// Package auth verifies the opaque bearer tokens the account service issues.
// A token is "<token-id>.<secret>"; only the bcrypt hash of the secret is
// stored, so a leaked database does not leak usable credentials.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnknownUser  = errors.New("unknown user")
)

// TokenSource is the slice of the data store the verifier needs.
type TokenSource interface {
	GetAPIToken(ctx context.Context, id uuid.UUID) (*models.APIToken, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Verifier resolves a bearer token to the user it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// StoreVerifier verifies tokens against the data store.
type StoreVerifier struct {
	source TokenSource
}

// NewStoreVerifier creates a verifier backed by the given store.
func NewStoreVerifier(source TokenSource) *StoreVerifier {
	return &StoreVerifier{source: source}
}

// Verify parses and checks a bearer token, returning the owning user.
func (v *StoreVerifier) Verify(ctx context.Context, token string) (*models.User, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id", ErrInvalidToken)
	}

	record, err := v.source.GetAPIToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: unknown token", ErrInvalidToken)
	}
	if record.Expired(time.Now()) {
		return nil, ErrExpiredToken
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)); err != nil {
		return nil, fmt.Errorf("%w: bad secret", ErrInvalidToken)
	}

	user, err := v.source.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// TokenMinter is the slice of the data store minting needs.
type TokenMinter interface {
	CreateAPIToken(ctx context.Context, userID uuid.UUID, secretHash string, expiresAt time.Time) (*models.APIToken, error)
}

// Mint issues a new bearer token for a user and returns its printable form.
func Mint(ctx context.Context, store TokenMinter, userID uuid.UUID, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	record, err := store.CreateAPIToken(ctx, userID, string(hash), time.Now().Add(ttl))
	if err != nil {
		return "", err
	}

	return record.ID.String() + "." + secret, nil
}
