package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/daniil11ru/bus-tracker/cli/tracker/api"
	"github.com/daniil11ru/bus-tracker/cli/tracker/config"
	"github.com/daniil11ru/bus-tracker/cli/tracker/connector/implementation"
	"github.com/daniil11ru/bus-tracker/cli/tracker/domain"
	"github.com/daniil11ru/bus-tracker/cli/tracker/feed"
	"github.com/daniil11ru/bus-tracker/cli/tracker/repository/primary"
	"github.com/daniil11ru/bus-tracker/cli/tracker/source"
	"github.com/daniil11ru/bus-tracker/cli/tracker/storage"
	"github.com/daniil11ru/bus-tracker/cli/tracker/util"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const recentErrorsSize = 10

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "")
	flag.Parse()
	settings, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	recentErrors := util.NewRecentErrors(recentErrorsSize)
	configureLogging(settings)
	log.AddHook(recentErrors)

	dbConnector := &implementation.Connector{}
	if err := dbConnector.Connect(settings.Database); err != nil {
		log.Fatalf("Не удалось подключиться к базе данных: %v", err)
		return
	}
	defer dbConnector.Close()

	primarySource, err := source.NewDefaultPrimary(dbConnector)
	if err != nil {
		log.Fatalf("Не удалось инициализировать источник данных: %v", err)
		return
	}
	if err := primarySource.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Не удалось подготовить схему базы данных: %v", err)
		return
	}

	primaryRepository := &primary.PrimaryRepository{Source: primarySource, ExportFormat: settings.ExportFormat}

	exporters := storage.NewRepository()
	var asyncExporters *storage.AsyncRepository
	if len(settings.Exporters) > 0 {
		if err := exporters.LoadStorages(settings.Exporters); err != nil {
			log.Fatalf("Не удалось подключить выходные хранилища: %v", err)
			return
		}
		asyncExporters = storage.NewAsyncRepository(exporters, settings.ExportBuffer, settings.ExportWorkers)
		primaryRepository.Exporter = asyncExporters
		log.WithFields(log.Fields{"count": exporters.Len(), "format": settings.ExportFormat}).Info("Новые отметки пересылаются во внешние хранилища")
	}

	client := feed.NewClient(settings.PositionsURL, settings.LinesURL, settings.GetRequestTimeout(), settings.MaxResponseBytes)
	client.LineParam = settings.LineParam

	lines := domain.NewLineSet(settings.Lines)
	scheduler := runLinesRefresh(settings, client, lines)

	ctx, cancel := context.WithCancel(context.Background())
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		runPoller(ctx, settings, client, primaryRepository, lines)
	}()

	srv := newApiServer(settings, primaryRepository, recentErrors)
	go func() {
		log.Infof("Запуск API на порту %d", settings.ApiPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Не удалось запустить API: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infof("Получен сигнал %s, остановка", sig)

	cancel()
	<-pollerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.GetShutdownTimeout())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Ошибка при остановке API: %v", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	if asyncExporters != nil {
		asyncExporters.Close()
		if err := exporters.Close(); err != nil {
			log.Errorf("Ошибка при закрытии выходных хранилищ: %v", err)
		}
	}

	log.Info("Сервис остановлен")
}

func getConfig(configFilePath string) (config.Settings, error) {
	var c config.Settings
	var err error

	if configFilePath == "" {
		return c, &util.ErrorString{S: "не задан путь до конфига"}
	}

	c, err = config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %v", err)
	}

	return c, nil
}

func configureLogging(settings config.Settings) {
	log.SetLevel(settings.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if settings.GetLogLevel() != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if settings.LogFilePath != "" {
		log.AddHook(newFileHook(settings))
	}
}

func newFileHook(settings config.Settings) *lfshook.LfsHook {
	logDir := filepath.Dir(settings.LogFilePath)
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
			log.Fatalf("Не получилось создать директорию для логов: %v", err)
		}
	}

	lumberjackLogger := newRotatingFile(settings)

	fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	return lfshook.NewHook(lfshook.WriterMap{
		log.PanicLevel: lumberjackLogger,
		log.FatalLevel: lumberjackLogger,
		log.ErrorLevel: lumberjackLogger,
		log.WarnLevel:  lumberjackLogger,
		log.InfoLevel:  lumberjackLogger,
		log.DebugLevel: lumberjackLogger,
		log.TraceLevel: lumberjackLogger,
	}, fileFmt)
}

func newRotatingFile(settings config.Settings) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   settings.LogFilePath,
		MaxSize:    100,
		MaxBackups: 366,
		MaxAge:     settings.LogMaxAgeDays,
		Compress:   true,
	}
}

func runLinesRefresh(settings config.Settings, client *feed.Client, lines *domain.LineSet) *cron.Cron {
	if settings.LinesURL == "" {
		log.Infof("Опрашиваются линии из конфига: %v", lines.Get())
		return nil
	}

	refreshLines := domain.RefreshLines{Feed: client, Lines: lines, Timeout: settings.GetRequestTimeout()}
	if err := refreshLines.Run(); err != nil {
		log.WithField("err", err).Warn("Используется перечень линий из конфига")
	}

	c := cron.New()
	err := c.AddFunc(settings.LinesRefreshCron, func() {
		if err := refreshLines.Run(); err != nil {
			log.WithField("err", err).Error("Перечень линий не обновлён")
		}
	})
	if err != nil {
		log.Fatalf("Не удалось запланировать обновление линий: %v", err)
	}
	c.Start()
	log.Infof("Запланировано обновление перечня линий: %s", settings.LinesRefreshCron)
	return c
}

func runPoller(ctx context.Context, settings config.Settings, client *feed.Client, repository *primary.PrimaryRepository, lines *domain.LineSet) {
	savePositions := domain.NewSavePositions(client, repository, settings.GetRequestDelay(), settings.Workers, settings.GetRequestTimeout())
	poller := domain.Poller{
		SavePositions: savePositions,
		Lines:         lines,
		Interval:      settings.GetPollInterval(),
	}
	log.Infof("Запуск опроса с периодом %s", poller.Interval)
	poller.Run(ctx)
	log.Info("Опрос остановлен")
}

func newApiServer(settings config.Settings, repository *primary.PrimaryRepository, recentErrors *util.RecentErrors) *http.Server {
	getLatestPositions := &domain.GetLatestPositions{Repository: repository, MaxLimit: settings.QueryMaxLimit}
	handler := api.NewHandler(getLatestPositions, repository, recentErrors, domain.DefaultQueryLimit)
	controller := api.NewController(handler)
	return controller.NewServer(settings.GetApiAddress())
}
