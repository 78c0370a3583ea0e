package reliability

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/aknight/ballast/internal/testing"
)

func TestParseArchiveTimestamp(t *testing.T) {
	timestamp, ok := parseArchiveTimestamp("ballast-backup-2026-08-24-031500.tar.gz")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 24, 3, 15, 0, 0, time.UTC), timestamp)

	for _, name := range []string{
		"ballast-backup-garbage.tar.gz",
		"other-backup-2026-08-24-031500.tar.gz",
		"ballast-backup-2026-08-24-031500.zip",
	} {
		_, ok := parseArchiveTimestamp(name)
		assert.False(t, ok, name)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "payload.db")
	require.NoError(t, os.WriteFile(src, []byte("not really a database"), 0644))
	meta := filepath.Join(dir, "backup-metadata.json")
	require.NoError(t, os.WriteFile(meta, []byte(`{"database":"payload.db"}`), 0644))

	archivePath := filepath.Join(dir, "archive.tar.gz")
	require.NoError(t, createArchive(archivePath, []string{src, meta}))

	archive, err := os.Open(archivePath)
	require.NoError(t, err)
	defer archive.Close()

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	files, err := extractArchive(archive, outDir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	restored, err := os.ReadFile(files["payload.db"])
	require.NoError(t, err)
	assert.Equal(t, "not really a database", string(restored))
}

func TestFileChecksumIsStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	sum, err := fileChecksum(path)
	require.NoError(t, err)
	// sha256("abc")
	assert.Equal(t, "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}

func TestMaintenancePurgesExpiredCache(t *testing.T) {
	db, _ := testhelpers.NewTestDB(t)

	past := time.Now().Add(-time.Hour).Unix()
	future := time.Now().Add(time.Hour).Unix()
	_, err := db.Exec("INSERT INTO report_cache (key, data, expires_at) VALUES ('old', x'00', ?), ('fresh', x'00', ?)", past, future)
	require.NoError(t, err)

	m := NewMaintenanceService(db, t.TempDir(), zerolog.Nop())
	require.NoError(t, m.RunDaily(context.Background()))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM report_cache").Scan(&count))
	assert.Equal(t, 1, count)

	var key string
	require.NoError(t, db.QueryRow("SELECT key FROM report_cache").Scan(&key))
	assert.Equal(t, "fresh", key)
}
