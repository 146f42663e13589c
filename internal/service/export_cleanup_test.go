package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

func TestNewExportCleanup(t *testing.T) {
	svc, _ := newTestExportService(t, newMemStore(), nil)

	_, err := NewExportCleanup("every now and then", svc, nil)
	assert.Error(t, err)

	c, err := NewExportCleanup("", svc, nil)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}

func TestCleanupRemovesExpiredExports(t *testing.T) {
	store := newMemStore()
	seedSchedule(t, store)
	svc, files := newTestExportService(t, store, nil)
	svc.cfg.RetainFor = time.Hour

	res, err := svc.Export(context.Background(), festival, models.ExportFormatCSV)
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(files.Path(res.Path), old, old))

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	_, err = files.Read(res.Path)
	assert.Error(t, err)
}
