package source

import (
	"context"
	"fmt"
	"time"

	"github.com/daniil11ru/bus-tracker/cli/tracker/connector"
	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
	log "github.com/sirupsen/logrus"
)

// CapturedAtLayout формат колонки datetime: фиксированная ширина в UTC,
// лексикографический порядок совпадает с хронологическим.
const CapturedAtLayout = "2006-01-02 15:04:05.000000"

// LegacyCapturedAtLayout формат, в котором прежняя версия сервиса писала
// местное время получения.
const LegacyCapturedAtLayout = "02-01-2006 15:04:05"

type DefaultPrimary struct {
	connector connector.Connector
	dialect   dialect
}

func NewDefaultPrimary(connector connector.Connector) (*DefaultPrimary, error) {
	if connector == nil || connector.GetConnection() == nil {
		return nil, fmt.Errorf("соединение с базой данных не установлено")
	}

	d, err := dialectFor(connector.GetDriver())
	if err != nil {
		return nil, err
	}

	return &DefaultPrimary{connector: connector, dialect: d}, nil
}

func (s *DefaultPrimary) EnsureSchema(ctx context.Context) error {
	db := s.connector.GetConnection()

	if _, err := db.ExecContext(ctx, s.dialect.createTable()); err != nil {
		return storeError("создание таблицы positions", err)
	}

	if s.dialect.upgrade != "" {
		if _, err := db.ExecContext(ctx, s.dialect.upgrade); err != nil {
			return storeError("обновление таблицы positions", err)
		}
	}

	if s.dialect.createIndex != "" {
		if _, err := db.ExecContext(ctx, s.dialect.createIndex); err != nil {
			return storeError("создание индекса positions", err)
		}
	}

	return s.normalizeLegacyDatetimes(ctx)
}

// normalizeLegacyDatetimes переводит время получения, записанное прежней версией,
// в формат CapturedAtLayout, чтобы порядок строк оставался хронологическим.
func (s *DefaultPrimary) normalizeLegacyDatetimes(ctx context.Context) error {
	db := s.connector.GetConnection()

	type legacyRow struct {
		datetime string
		key      types.Key
	}

	rows, err := db.QueryContext(ctx, s.dialect.selectLegacyDatetimes())
	if err != nil {
		return storeError("поиск строк прежнего формата", err)
	}
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.datetime, &r.key.LineID, &r.key.VehicleID, &r.key.ReportTime); err != nil {
			rows.Close()
			return storeError("поиск строк прежнего формата", err)
		}
		legacy = append(legacy, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storeError("поиск строк прежнего формата", err)
	}
	if len(legacy) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("перевод строк прежнего формата", err)
	}
	defer tx.Rollback()

	for _, r := range legacy {
		capturedAt, err := parseCapturedAt(r.datetime)
		if err != nil {
			return storeError("перевод строк прежнего формата", err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.updateDatetime(),
			capturedAt.UTC().Format(CapturedAtLayout), r.key.LineID, r.key.VehicleID, r.key.ReportTime); err != nil {
			return storeError("перевод строк прежнего формата", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("перевод строк прежнего формата", err)
	}
	log.WithField("rows", len(legacy)).Info("Время получения в строках прежнего формата приведено к UTC")
	return nil
}

func parseCapturedAt(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(CapturedAtLayout, value, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation(LegacyCapturedAtLayout, value, time.Local)
}

func (s *DefaultPrimary) InsertPosition(ctx context.Context, position types.Position) (bool, error) {
	res, err := s.connector.GetConnection().ExecContext(ctx, s.dialect.insert(),
		position.CapturedAt.UTC().Format(CapturedAtLayout),
		position.LineID,
		position.VehicleID,
		position.Latitude,
		position.Longitude,
		position.ReportTime,
	)
	if err != nil {
		return false, storeError("вставка отметки", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeError("вставка отметки", err)
	}

	return affected == 1, nil
}

func (s *DefaultPrimary) GetLatestPositions(ctx context.Context, limit uint) ([]types.Position, error) {
	positions := []types.Position{}
	if limit == 0 {
		return positions, nil
	}

	rows, err := s.connector.GetConnection().QueryContext(ctx, s.dialect.selectLatest(), int64(limit))
	if err != nil {
		return nil, storeError("чтение отметок", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			capturedAt string
			position   types.Position
		)
		if err := rows.Scan(&capturedAt, &position.LineID, &position.VehicleID, &position.Latitude, &position.Longitude, &position.ReportTime); err != nil {
			return nil, storeError("чтение строки", err)
		}

		position.CapturedAt, err = parseCapturedAt(capturedAt)
		if err != nil {
			return nil, storeError("разбор времени получения", err)
		}

		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("чтение отметок", err)
	}

	return positions, nil
}

func (s *DefaultPrimary) CountPositions(ctx context.Context) (int64, error) {
	var count int64
	if err := s.connector.GetConnection().QueryRowContext(ctx, "SELECT COUNT(*) FROM positions").Scan(&count); err != nil {
		return 0, storeError("подсчёт отметок", err)
	}
	return count, nil
}

func (s *DefaultPrimary) GetDaySummaries(ctx context.Context) ([]types.DaySummary, error) {
	rows, err := s.connector.GetConnection().QueryContext(ctx, s.dialect.selectDays())
	if err != nil {
		return nil, storeError("сводка по суткам", err)
	}
	defer rows.Close()

	days := []types.DaySummary{}
	for rows.Next() {
		var (
			day         types.DaySummary
			first, last string
		)
		if err := rows.Scan(&day.Day, &day.Count, &first, &last); err != nil {
			return nil, storeError("сводка по суткам", err)
		}
		if day.FirstSeen, err = parseCapturedAt(first); err != nil {
			return nil, storeError("разбор времени получения", err)
		}
		if day.LastSeen, err = parseCapturedAt(last); err != nil {
			return nil, storeError("разбор времени получения", err)
		}
		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("сводка по суткам", err)
	}
	return days, nil
}
