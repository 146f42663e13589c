package service

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NewExportCleanup schedules periodic removal of expired exports. The caller starts and
// stops the returned cron.
func NewExportCleanup(spec string, exports *ExportService, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = "@hourly"
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := exports.Cleanup(); err != nil {
			logger.Warn("export cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid export cleanup schedule %q: %w", spec, err)
	}
	return c, nil
}
