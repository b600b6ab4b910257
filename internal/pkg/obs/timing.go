package obs

import (
	"context"
	"log/slog"
	"time"
)

// Time starts timing op and returns a func that logs its duration and
// outcome. Use with a named error return:
//
//	defer obs.Time(ctx, logger, "osrm.route")(&err)
func Time(ctx context.Context, logger *slog.Logger, op string) func(errp *error) {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}

	return func(errp *error) {
		dur := time.Since(start)
		if errp != nil && *errp != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "op failed",
				slog.String("op", op),
				slog.Int64("dur_ms", dur.Milliseconds()),
				slog.String("error", (*errp).Error()),
			)
			return
		}
		logger.LogAttrs(ctx, slog.LevelDebug, "op done",
			slog.String("op", op),
			slog.Int64("dur_ms", dur.Milliseconds()),
		)
	}
}
