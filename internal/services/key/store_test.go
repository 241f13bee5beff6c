package key

import (
	"os"
	"testing"

	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// storeService opens the test database named by TEST_DATABASE_URL, skipping
// the test when none is configured.
func storeService(t *testing.T) *Service {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.APIKey{}))

	return NewService(db, zap.NewNop())
}

func TestStore_CreateAndLookup(t *testing.T) {
	svc := storeService(t)

	res, err := svc.Create(t.Context(), "jdoe@dynamo.works", "engineer")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", res.Key.UserID)
	assert.Equal(t, res.RawKey[:PrefixDisplayLen], res.Key.KeyPrefix)

	k, err := svc.LookupByHash(t.Context(), HashKey(res.RawKey))
	require.NoError(t, err)
	assert.Equal(t, res.Key.ID, k.ID)
	assert.Equal(t, "engineer", k.Role)
}

func TestStore_RevokedKeyNoLongerResolves(t *testing.T) {
	svc := storeService(t)

	res, err := svc.Create(t.Context(), "jdoe@dynamo.works", "engineer")
	require.NoError(t, err)

	changed, err := svc.Revoke(t.Context(), res.Key.ID.String())
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = svc.LookupByHash(t.Context(), HashKey(res.RawKey))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Second revocation is a no-op, not an error.
	changed, err = svc.Revoke(t.Context(), res.Key.ID.String())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStore_RevokeUnknownKey(t *testing.T) {
	svc := storeService(t)

	_, err := svc.Revoke(t.Context(), "8f1f9d90-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = svc.Revoke(t.Context(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStore_RotatePreservesIdentity(t *testing.T) {
	svc := storeService(t)

	res, err := svc.Create(t.Context(), "rotate@dynamo.works", "power_user")
	require.NoError(t, err)

	rotated, err := svc.Rotate(t.Context(), res.Key.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, res.Key.ID, rotated.Key.ID)
	assert.NotEqual(t, res.RawKey, rotated.RawKey)
	assert.Equal(t, res.Key.UserID, rotated.Key.UserID)
	assert.Equal(t, res.Key.Role, rotated.Key.Role)

	_, err = svc.LookupByHash(t.Context(), HashKey(res.RawKey))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	k, err := svc.LookupByHash(t.Context(), HashKey(rotated.RawKey))
	require.NoError(t, err)
	assert.Equal(t, rotated.Key.ID, k.ID)

	// A revoked key cannot be rotated again.
	_, err = svc.Rotate(t.Context(), res.Key.ID.String())
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNilStoreOperations(t *testing.T) {
	svc := NewService(nil, zap.NewNop())

	_, err := svc.Create(t.Context(), "a@b.c", "engineer")
	assert.ErrorIs(t, err, ErrNoStore)

	keys, err := svc.List(t.Context())
	require.NoError(t, err)
	assert.Nil(t, keys)

	_, err = svc.LookupByHash(t.Context(), "deadbeef")
	assert.ErrorIs(t, err, ErrNoStore)
}
