package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactsCSV = "Name,Mobile,City\n" +
	"Asha,9818202888,Pune\n" +
	"Ravi,+91 98182-02888,Delhi\n" +
	"Meera,7012345678,Goa\n" +
	"Bad,1111111111,Agra\n" +
	"Short,12345,Kota\n"

func TestMain(m *testing.M) {
	color.Disable()
	os.Exit(m.Run())
}

// resetFlags restores every flag variable to its default. Cobra keeps
// parsed values between Execute calls.
func resetFlags() {
	cfgFile, logLevel, logFormat = "", "", ""
	exportMode, exportFormat = "", ""
	chunkSize, batchSize, sleepSeconds = 0, 0, 0
	countryCode, outputDir, verifyMethod = "", "", ""
	noColor = false

	cleanColumns, cleanNameColumn, cleanHeaderRow = nil, "", 0
	cleanReports, cleanProgress = false, false
	previewRows, previewColumns, previewNameColumn, previewHeaderRow = 0, nil, "", 0
	reportColumns, reportNameColumn, reportHeaderRow = nil, "", 0
	reportLimit, reportWrite = 10, false
	repairOutput = ""
	serveHost, servePort = "", 0
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecute(t *testing.T) {
	// Execute() calls os.Exit(1) on error, so only its presence is checked
	assert.NotNil(t, Execute)
}

func TestVersionVariables(t *testing.T) {
	assert.NotEmpty(t, Version, "Version should not be empty")
	assert.NotEmpty(t, Commit, "Commit should not be empty")
}

func TestCLIFlagsVariables(t *testing.T) {
	resetFlags()

	// An empty config path runs on defaults
	assert.Equal(t, "", cfgFile)
	assert.Equal(t, "", logLevel)
	assert.Equal(t, "", exportMode)
	assert.Equal(t, 0, chunkSize)
	assert.Equal(t, 0, batchSize)
	assert.Equal(t, float64(0), sleepSeconds)
	assert.False(t, noColor)
}

func TestGetCLIOverrides(t *testing.T) {
	resetFlags()
	defer resetFlags()

	logLevel = "debug"
	exportMode = "unique"
	exportFormat = "csv"
	batchSize = 100
	sleepSeconds = 1.5
	countryCode = "44"
	verifyMethod = "sha256"

	o := GetCLIOverrides()
	assert.Equal(t, "debug", o.LogLevel)
	assert.Equal(t, "unique", o.Mode)
	assert.Equal(t, "csv", o.Format)
	assert.Equal(t, 100, o.BatchSize)
	assert.Equal(t, 1.5, o.SleepSeconds)
	assert.Equal(t, "44", o.CountryCode)
	assert.Equal(t, "sha256", o.Verify)
	assert.Equal(t, 0, o.ChunkSize)
}

func TestSetup(t *testing.T) {
	resetFlags()
	defer resetFlags()

	dir := t.TempDir()
	cfgFile = writeFile(t, dir, "phoneclean.yaml", `
export:
  mode: unique
  output_dir: /tmp/out
processing:
  batch_size: 500
logging:
  level: error
`)
	batchSize = 50
	exportFormat = "csv"

	cfg, log, err := setup()
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, "unique", cfg.Export.Mode)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, "/tmp/out", cfg.Export.OutputDir)
	assert.Equal(t, 50, cfg.Processing.BatchSize, "flags win over the file")
	assert.Equal(t, "91", cfg.Number.CountryCode, "unset keys keep defaults")
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(dir string)
		wantErr string
	}{
		{
			name:    "missing file",
			prepare: func(dir string) { cfgFile = filepath.Join(dir, "missing.yaml") },
			wantErr: "failed to load config",
		},
		{
			name:    "invalid mode",
			prepare: func(string) { exportMode = "everything" },
			wantErr: "invalid configuration",
		},
		{
			name:    "invalid verification",
			prepare: func(string) { verifyMethod = "md5" },
			wantErr: "invalid configuration",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			defer resetFlags()
			tt.prepare(t.TempDir())

			_, _, err := setup()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
