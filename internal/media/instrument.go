package media

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// instrumentedRelay records metrics, spans and failure logs around another relay.
type instrumentedRelay struct {
	next Relay
}

// Instrument wraps relay with upload metrics and tracing.
func Instrument(relay Relay) Relay {
	return &instrumentedRelay{next: relay}
}

func (r *instrumentedRelay) Upload(ctx context.Context, obj Object) (Result, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "media.upload",
		attribute.String("media.kind", string(obj.Kind)),
		attribute.Int("media.size", len(obj.Data)),
	)
	res, err := r.next.Upload(ctx, obj)
	observability.ObserveUpload(string(obj.Kind), start, err)
	observability.EndSpan(span, err)
	if err != nil {
		observability.Logger.WarnContext(ctx, "media upload failed",
			slog.String("kind", string(obj.Kind)),
			slog.String("filename", obj.Filename),
			slog.String("error", err.Error()),
		)
	}
	return res, err
}

func (r *instrumentedRelay) Delete(ctx context.Context, publicID string, kind Kind) error {
	ctx, span := observability.StartSpan(ctx, "media.delete",
		attribute.String("media.kind", string(kind)),
		attribute.String("media.public_id", publicID),
	)
	err := r.next.Delete(ctx, publicID, kind)
	observability.EndSpan(span, err)
	return err
}
