package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shockbytes/dante/internal/entities"
)

func setupTestStore(t *testing.T) (*TokenStore, func()) {
	dbPath := "./test_tokens_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuthToken{}))

	store := NewTokenStore(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return store, cleanup
}

func signedJWT(t *testing.T, subject string, expiresAt time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestTokenStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	token := &entities.AuthToken{
		Source:      entities.AccountSourceGoogle,
		AccountID:   "alice@example.com",
		DisplayName: "Alice",
		AccessToken: "opaque-token",
	}
	require.NoError(t, store.SaveToken(token))

	got, err := store.GetToken(entities.AccountSourceGoogle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.AccountID)
	assert.Equal(t, "opaque-token", got.AccessToken)
}

func TestTokenStore_SaveUpserts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	first := &entities.AuthToken{
		Source: entities.AccountSourceGoogle, AccountID: "alice@example.com", AccessToken: "old",
	}
	require.NoError(t, store.SaveToken(first))

	second := &entities.AuthToken{
		Source: entities.AccountSourceGoogle, AccountID: "alice@example.com", AccessToken: "new",
	}
	require.NoError(t, store.SaveToken(second))
	assert.Equal(t, first.ID, second.ID)

	got, err := store.GetToken(entities.AccountSourceGoogle)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
}

func TestTokenStore_GetMissingReturnsNil(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := store.GetToken(entities.AccountSourceMail)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenStore_DeleteToken(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	token := &entities.AuthToken{
		Source: entities.AccountSourceGoogle, AccountID: "alice@example.com", AccessToken: "tok",
	}
	require.NoError(t, store.SaveToken(token))
	require.NoError(t, store.DeleteToken(entities.AccountSourceGoogle, "alice@example.com"))

	got, err := store.GetToken(entities.AccountSourceGoogle)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoredAccountProvider_OpaqueToken(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, store.SaveToken(&entities.AuthToken{
		Source:      entities.AccountSourceGoogle,
		AccountID:   "alice@example.com",
		DisplayName: "Alice",
		AccessToken: "opaque-token",
	}))

	provider := NewStoredAccountProvider(store, entities.AccountSourceGoogle)

	account, err := provider.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", account.ID)
	assert.Equal(t, "Alice", account.DisplayName)
	assert.Equal(t, entities.AccountSourceGoogle, account.Source)

	header, err := provider.AuthorizationHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-token", header)
}

func TestStoredAccountProvider_JWTSubjectWins(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	raw := signedJWT(t, "google-uid-42", time.Now().Add(time.Hour))
	require.NoError(t, store.SaveToken(&entities.AuthToken{
		Source:      entities.AccountSourceGoogle,
		AccountID:   "alice@example.com",
		AccessToken: raw,
	}))

	provider := NewStoredAccountProvider(store, entities.AccountSourceGoogle)

	account, err := provider.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "google-uid-42", account.ID)
}

func TestStoredAccountProvider_ExpiredJWT(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	raw := signedJWT(t, "google-uid-42", time.Now().Add(-time.Hour))
	require.NoError(t, store.SaveToken(&entities.AuthToken{
		Source:      entities.AccountSourceGoogle,
		AccountID:   "alice@example.com",
		AccessToken: raw,
	}))

	provider := NewStoredAccountProvider(store, entities.AccountSourceGoogle)

	_, err := provider.Account(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestStoredAccountProvider_ExpiredStoredToken(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, store.SaveToken(&entities.AuthToken{
		Source:      entities.AccountSourceGoogle,
		AccountID:   "alice@example.com",
		AccessToken: "opaque-token",
		ExpiresAt:   &expired,
	}))

	provider := NewStoredAccountProvider(store, entities.AccountSourceGoogle)

	_, err := provider.Account(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestStoredAccountProvider_SignedOut(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	provider := NewStoredAccountProvider(store, entities.AccountSourceGoogle)

	_, err := provider.Account(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = provider.AuthorizationHeader(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)
}
