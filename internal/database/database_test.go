package database

import (
	"context"
	"path/filepath"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		Env:                      "test",
		StoreDriver:              config.StoreSQLite,
		DBPath:                   filepath.Join(t.TempDir(), "inkwell.db"),
		DBMaxIdleConns:           2,
		DBConnMaxLifetimeMinutes: 5,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Post{}, "idx_posts_author_created"))
	assert.NoError(t, Ping(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestDialector(t *testing.T) {
	pg, err := Dialector(&config.Config{
		StoreDriver: config.StorePostgres,
		DBHost:      "db",
		DBPort:      "5432",
		DBUser:      "u",
		DBPassword:  "p",
		DBName:      "inkwell",
	})
	require.NoError(t, err)
	pgDialector, ok := pg.(*postgres.Dialector)
	require.True(t, ok)
	assert.Contains(t, pgDialector.Config.DSN, "sslmode=disable")
	assert.Contains(t, pgDialector.Config.DSN, "dbname=inkwell")

	lite, err := Dialector(&config.Config{StoreDriver: config.StoreSQLite, DBPath: "x.db"})
	require.NoError(t, err)
	_, ok = lite.(*sqlite.Dialector)
	assert.True(t, ok)

	_, err = Dialector(&config.Config{StoreDriver: config.StoreMongo})
	assert.Error(t, err)
}

func TestPersistentModels(t *testing.T) {
	found := map[string]bool{}
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.User:
			found["user"] = true
		case *models.Post:
			found["post"] = true
		case *models.Comment:
			found["comment"] = true
		case *models.PostLike:
			found["like"] = true
		}
	}
	assert.Len(t, found, 4)
}

func TestMongoIndexes(t *testing.T) {
	indexes := MongoIndexes()
	require.Len(t, indexes[UsersCollection], 2)
	require.Len(t, indexes[PostsCollection], 4)

	first := indexes[UsersCollection][0]
	require.NotNil(t, first.Options)
	require.NotNil(t, first.Options.Unique)
	assert.True(t, *first.Options.Unique)

	keys, ok := indexes[PostsCollection][0].Keys.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "author", keys[0].Key)
	assert.Equal(t, "createdAt", keys[1].Key)
}
