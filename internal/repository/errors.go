package repository

import (
	"errors"
	"strings"

	"inkwell/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// Duplicate-key messages keyed by the unique user field that collided.
var duplicateMessages = map[string]string{
	"email":    "email is already registered",
	"username": "username is already taken",
}

// translateSQLError maps driver errors onto the application's error taxonomy.
func translateSQLError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicateError(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return duplicateError(err.Error())
	}
	return models.NewInternalError(err)
}

// translateMongoError maps driver errors onto the application's error taxonomy.
func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return duplicateError(err.Error())
	}
	return models.NewInternalError(err)
}

// duplicateError names the colliding field from whatever the driver reported about the index.
func duplicateError(hint string) error {
	hint = strings.ToLower(hint)
	for _, field := range []string{"email", "username"} {
		if strings.Contains(hint, field) {
			return models.NewDuplicateError(field, duplicateMessages[field])
		}
	}
	return models.NewDuplicateError("", "record already exists")
}
