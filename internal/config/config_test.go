package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalat/alphalat/internal/spectral"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, spectral.DefaultParams(), cfg.Params())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alat.yaml")
	yml := `
database:
  path: /data/alat.db
analysis:
  fmin: 9
  fmax: 11
blob:
  driver: s3
  bucket: eeg-derivatives
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	t.Setenv("ALAT_ANALYSIS_FMAX", "13")
	t.Setenv("ALAT_ANALYSIS_CYCLES_DIVISOR", "3")
	t.Setenv("ALAT_ANALYSIS_RIGHT", "P8,PO8")
	t.Setenv("ALAT_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/alat.db", cfg.Database.Path)
	assert.Equal(t, 9.0, cfg.Analysis.FMin)
	assert.Equal(t, 13.0, cfg.Analysis.FMax)
	assert.Equal(t, 3.0, cfg.Analysis.CyclesDivisor)
	assert.Equal(t, []string{"P8", "PO8"}, cfg.Analysis.Right)
	assert.Equal(t, []string{"P7", "P9", "PO7"}, cfg.Analysis.Left)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "eeg-derivatives", cfg.Blob.Bucket)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"inverted band", "analysis:\n  fmin: 12\n  fmax: 8\n"},
		{"unknown driver", "blob:\n  driver: gcs\n"},
		{"s3 without bucket", "blob:\n  driver: s3\n"},
		{"bad level", "logging:\n  level: chatty\n"},
		{"empty cluster", "analysis:\n  left: []\n"},
		{"bad yaml", "analysis: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "alat.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate_ReportsField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0

	err := cfg.Validate()

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Port", verrs[0].Field())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alat.yaml")
	cfg := DefaultConfig()
	cfg.Metrics.TextfilePath = "/var/lib/node_exporter/alat.prom"
	cfg.Analysis.Workers = 4

	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
