package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBufferedLogger(level logger.LogLevel) (logger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return newSlogLogger(log, level), &buf
}

func statement() (string, int64) { return "SELECT 1", 1 }

func TestSlogLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("errors are logged with the cause", func(t *testing.T) {
		l, buf := newBufferedLogger(logger.Warn)
		l.Trace(ctx, time.Now(), statement, errors.New("syntax error"))
		assert.Contains(t, buf.String(), "query failed")
		assert.Contains(t, buf.String(), "syntax error")
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		l, buf := newBufferedLogger(logger.Warn)
		l.Trace(ctx, time.Now(), statement, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, buf := newBufferedLogger(logger.Warn)
		l.Trace(ctx, time.Now().Add(-time.Second), statement, nil)
		assert.Contains(t, buf.String(), "slow query")
	})

	t.Run("fast queries only at info", func(t *testing.T) {
		l, buf := newBufferedLogger(logger.Warn)
		l.Trace(ctx, time.Now(), statement, nil)
		assert.Empty(t, buf.String())

		l.LogMode(logger.Info).Trace(ctx, time.Now(), statement, nil)
		assert.Contains(t, buf.String(), "SELECT 1")
	})

	t.Run("silent", func(t *testing.T) {
		l, buf := newBufferedLogger(logger.Silent)
		l.Trace(ctx, time.Now(), statement, errors.New("boom"))
		l.Error(ctx, "failed %d", 1)
		assert.Empty(t, buf.String())
	})
}
