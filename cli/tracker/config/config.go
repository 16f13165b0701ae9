package config

/*
Описание конфигурационного файла
*/

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"

	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPositionsURL     = "https://www.jaha.com.py/api/posicionColectivos"
	DefaultLineParam        = "linea"
	DefaultLinesRefreshCron = "@hourly"
)

type Settings struct {
	LogLevel      string `yaml:"log_level"`
	LogFilePath   string `yaml:"log_file_path"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	ApiPort            int32 `yaml:"api_port"`
	QueryMaxLimit      uint  `yaml:"query_max_limit"`
	ShutdownTimeoutSec int   `yaml:"shutdown_timeout"`

	Database map[string]string `yaml:"database"`

	PositionsURL     string  `yaml:"positions_url"`
	LineParam        string  `yaml:"line_param"`
	LinesURL         string  `yaml:"lines_url"`
	LinesRefreshCron string  `yaml:"lines_refresh_cron"`
	Lines            []int32 `yaml:"lines"`
	PollIntervalSec  int     `yaml:"poll_interval"`
	RequestTimeout   int     `yaml:"request_timeout"`
	RequestDelayMs   int     `yaml:"request_delay_ms"`
	Workers          int     `yaml:"workers"`
	MaxResponseBytes int64   `yaml:"max_response_bytes"`

	ExportFormat  string                       `yaml:"export_format"`
	ExportBuffer  int                          `yaml:"export_buffer"`
	ExportWorkers int                          `yaml:"export_workers"`
	Exporters     map[string]map[string]string `yaml:"exporters"`
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func (s *Settings) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalSec) * time.Second
}

func (s *Settings) GetRequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (s *Settings) GetRequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

func (s *Settings) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

func (s *Settings) GetApiAddress() string {
	return fmt.Sprintf(":%d", s.ApiPort)
}

func defaultLines() []int32 {
	lines := make([]int32, 0, 10)
	for i := int32(1); i <= 10; i++ {
		lines = append(lines, i)
	}
	return lines
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return c, err
	}

	return c, nil
}

func (c *Settings) applyDefaults() {
	if c.ApiPort == 0 {
		c.ApiPort = 8080
	}
	if c.QueryMaxLimit == 0 {
		c.QueryMaxLimit = 100
	}
	if c.ShutdownTimeoutSec == 0 {
		c.ShutdownTimeoutSec = 10
	}
	if c.Database == nil {
		c.Database = map[string]string{}
	}
	if c.Database["driver"] == "" {
		c.Database["driver"] = "sqlite"
	}
	if c.PositionsURL == "" {
		c.PositionsURL = DefaultPositionsURL
	}
	if c.LineParam == "" {
		c.LineParam = DefaultLineParam
	}
	if c.LinesRefreshCron == "" {
		c.LinesRefreshCron = DefaultLinesRefreshCron
	}
	if len(c.Lines) == 0 {
		c.Lines = defaultLines()
	}
	if c.PollIntervalSec == 0 {
		c.PollIntervalSec = 30
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10
	}
	if c.RequestDelayMs == 0 {
		c.RequestDelayMs = 500
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = 1 << 20
	}
	if c.ExportFormat == "" {
		c.ExportFormat = types.FormatJSON
	}
	if c.ExportBuffer == 0 {
		c.ExportBuffer = 1024
	}
	if c.ExportWorkers == 0 {
		c.ExportWorkers = 2
	}
}

func (c *Settings) validate() error {
	for _, line := range c.Lines {
		if line <= 0 {
			return fmt.Errorf("некорректный идентификатор линии: %d", line)
		}
	}
	if c.PollIntervalSec < 0 || c.RequestTimeout < 0 || c.RequestDelayMs < 0 || c.Workers < 0 || c.MaxResponseBytes < 0 {
		return fmt.Errorf("интервалы, таймауты и число воркеров не могут быть отрицательными")
	}
	if !types.IsKnownFormat(c.ExportFormat) {
		return fmt.Errorf("неизвестный формат пересылки: %s", c.ExportFormat)
	}
	if c.LinesURL != "" {
		if _, err := cron.Parse(c.LinesRefreshCron); err != nil {
			return fmt.Errorf("некорректное расписание обновления линий '%s': %v", c.LinesRefreshCron, err)
		}
	}
	return nil
}
