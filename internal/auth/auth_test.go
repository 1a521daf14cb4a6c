package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/models"
)

// fakeTokenStore is an in-memory TokenSource and TokenMinter.
type fakeTokenStore struct {
	tokens map[uuid.UUID]*models.APIToken
	users  map[uuid.UUID]*models.User
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens: make(map[uuid.UUID]*models.APIToken),
		users:  make(map[uuid.UUID]*models.User),
	}
}

func (s *fakeTokenStore) CreateAPIToken(ctx context.Context, userID uuid.UUID, secretHash string, expiresAt time.Time) (*models.APIToken, error) {
	token := &models.APIToken{
		ID:         uuid.New(),
		UserID:     userID,
		SecretHash: secretHash,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	s.tokens[token.ID] = token
	return token, nil
}

func (s *fakeTokenStore) GetAPIToken(ctx context.Context, id uuid.UUID) (*models.APIToken, error) {
	return s.tokens[id], nil
}

func (s *fakeTokenStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users[id], nil
}

func TestMintAndVerify(t *testing.T) {
	store := newFakeTokenStore()
	user := &models.User{ID: uuid.New(), Username: "alice"}
	store.users[user.ID] = user

	ctx := context.Background()
	token, err := Mint(ctx, store, user.ID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verifier := NewStoreVerifier(store)
	got, err := verifier.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestVerify_Malformed(t *testing.T) {
	verifier := NewStoreVerifier(newFakeTokenStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "justonepart"},
		{"empty secret", uuid.NewString() + "."},
		{"bad token id", "not-a-uuid.secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	verifier := NewStoreVerifier(newFakeTokenStore())
	_, err := verifier.Verify(context.Background(), uuid.NewString()+".somesecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	store := newFakeTokenStore()
	user := &models.User{ID: uuid.New(), Username: "alice"}
	store.users[user.ID] = user

	ctx := context.Background()
	token, err := Mint(ctx, store, user.ID, time.Hour)
	require.NoError(t, err)

	id, _, _ := strings.Cut(token, ".")
	verifier := NewStoreVerifier(store)
	_, err = verifier.Verify(ctx, id+".forgedsecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	store := newFakeTokenStore()
	user := &models.User{ID: uuid.New(), Username: "alice"}
	store.users[user.ID] = user

	ctx := context.Background()
	token, err := Mint(ctx, store, user.ID, -time.Minute)
	require.NoError(t, err)

	verifier := NewStoreVerifier(store)
	_, err = verifier.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_DeletedUser(t *testing.T) {
	store := newFakeTokenStore()
	userID := uuid.New()

	ctx := context.Background()
	token, err := Mint(ctx, store, userID, time.Hour)
	require.NoError(t, err)

	verifier := NewStoreVerifier(store)
	_, err = verifier.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnknownUser)
}
