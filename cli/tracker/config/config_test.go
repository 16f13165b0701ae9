package config

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	file, err := ioutil.TempFile("", "tracker_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(file.Name()) })

	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	return file.Name()
}

func TestConfigLoad(t *testing.T) {
	// To prevent log output during tests
	log.SetOutput(ioutil.Discard)

	cfg := `log_level: "DEBUG"
log_file_path: "logs/tracker.log"
log_max_age_days: 30
api_port: 9090

database:
  driver: "postgres"
  host: "localhost"
  port: "5432"
  user: "postgres"
  password: "postgres"
  database: "bus_positions"
  sslmode: "disable"

positions_url: "http://localhost:8000/api/posicionColectivos"
lines: [3, 1, 2]
poll_interval: 60
request_timeout: 5
request_delay_ms: 250
workers: 2

export_format: "msgpack"
exporters:
  nats:
    servers: "nats://localhost:4222"
    topic: "positions"
`

	conf, err := New(writeConfig(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, Settings{
		LogLevel:           "DEBUG",
		LogFilePath:        "logs/tracker.log",
		LogMaxAgeDays:      30,
		ApiPort:            9090,
		QueryMaxLimit:      100,
		ShutdownTimeoutSec: 10,
		Database: map[string]string{
			"driver":   "postgres",
			"host":     "localhost",
			"port":     "5432",
			"user":     "postgres",
			"password": "postgres",
			"database": "bus_positions",
			"sslmode":  "disable",
		},
		PositionsURL:     "http://localhost:8000/api/posicionColectivos",
		LineParam:        "linea",
		LinesRefreshCron: "@hourly",
		Lines:            []int32{3, 1, 2},
		PollIntervalSec:  60,
		RequestTimeout:   5,
		RequestDelayMs:   250,
		Workers:          2,
		MaxResponseBytes: 1 << 20,
		ExportFormat:     "msgpack",
		ExportBuffer:     1024,
		ExportWorkers:    2,
		Exporters: map[string]map[string]string{
			"nats": {
				"servers": "nats://localhost:4222",
				"topic":   "positions",
			},
		},
	}, conf)

	assert.Equal(t, log.DebugLevel, conf.GetLogLevel())
	assert.Equal(t, time.Minute, conf.GetPollInterval())
	assert.Equal(t, 5*time.Second, conf.GetRequestTimeout())
	assert.Equal(t, 250*time.Millisecond, conf.GetRequestDelay())
	assert.Equal(t, ":9090", conf.GetApiAddress())
}

func TestConfigDefaults(t *testing.T) {
	conf, err := New(writeConfig(t, "# empty config\n"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", conf.Database["driver"])
	assert.Equal(t, DefaultPositionsURL, conf.PositionsURL)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, conf.Lines)
	assert.Equal(t, 30*time.Second, conf.GetPollInterval())
	assert.Equal(t, 10*time.Second, conf.GetRequestTimeout())
	assert.Equal(t, 500*time.Millisecond, conf.GetRequestDelay())
	assert.Equal(t, 10*time.Second, conf.GetShutdownTimeout())
	assert.Equal(t, 1, conf.Workers)
	assert.Equal(t, uint(100), conf.QueryMaxLimit)
	assert.Equal(t, "json", conf.ExportFormat)
	assert.Equal(t, log.InfoLevel, conf.GetLogLevel())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		yamlContent string
	}{
		{name: "Non-positive line", yamlContent: "lines: [1, 0]\n"},
		{name: "Negative workers", yamlContent: "workers: -1\n"},
		{name: "Unknown export format", yamlContent: "export_format: xml\n"},
		{name: "Invalid refresh schedule", yamlContent: "lines_url: \"http://localhost/bus/lineas\"\nlines_refresh_cron: \"every hour\"\n"},
		{name: "Broken YAML", yamlContent: "lines: [1, 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(writeConfig(t, tt.yamlContent))
			assert.Error(t, err)
		})
	}
}

func TestConfigMissingFile(t *testing.T) {
	_, err := New("/tmp/non_existent_config_for_test.yaml")
	assert.Error(t, err)
}
