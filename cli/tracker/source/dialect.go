package source

import (
	"fmt"
	"strings"

	"github.com/daniil11ru/bus-tracker/cli/tracker/connector/implementation"
	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
)

// dialect различия SQL между поддерживаемыми драйверами.
type dialect struct {
	// idColumn суррогатный ключ для упорядочивания при равном datetime;
	// пусто, если порядок вставки даёт встроенный rowid.
	idColumn     string
	tieBreaker   string
	textType     string
	insertPrefix string
	insertSuffix string
	numbered     bool
	createIndex  string
	// upgrade приводит таблицу, созданную без суррогатного ключа, к текущей схеме
	upgrade string
}

var dialects = map[string]dialect{
	implementation.DriverPostgres: {
		idColumn:     "id BIGSERIAL PRIMARY KEY",
		tieBreaker:   "id",
		textType:     "TEXT",
		insertPrefix: "INSERT INTO",
		insertSuffix: " ON CONFLICT (linea, unidad, hora) DO NOTHING",
		numbered:     true,
		createIndex:  "CREATE INDEX IF NOT EXISTS positions_datetime_idx ON positions (datetime)",
		upgrade:      "ALTER TABLE positions ADD COLUMN IF NOT EXISTS id BIGSERIAL",
	},
	// схема совпадает с файлом bus_positions.db прежней версии сервиса
	implementation.DriverSQLite: {
		tieBreaker:   "rowid",
		textType:     "TEXT",
		insertPrefix: "INSERT INTO",
		insertSuffix: " ON CONFLICT (linea, unidad, hora) DO NOTHING",
		createIndex:  "CREATE INDEX IF NOT EXISTS positions_datetime_idx ON positions (datetime)",
	},
	// MySQL не поддерживает CREATE INDEX IF NOT EXISTS, индекс объявляется в таблице.
	// TEXT не может входить в UNIQUE без префикса, поэтому VARCHAR.
	implementation.DriverMySQL: {
		idColumn:     "id BIGINT AUTO_INCREMENT PRIMARY KEY",
		tieBreaker:   "id",
		textType:     fmt.Sprintf("VARCHAR(%d)", types.MaxTextLength),
		insertPrefix: "INSERT IGNORE INTO",
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("драйвер %s не поддерживается хранилищем отметок", driver)
	}
	return d, nil
}

func (d dialect) placeholder(i int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (d dialect) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

func (d dialect) createTable() string {
	var columns []string
	if d.idColumn != "" {
		columns = append(columns, d.idColumn)
	}
	columns = append(columns,
		"datetime "+d.textType+" NOT NULL",
		"linea INTEGER NOT NULL",
		"unidad INTEGER NOT NULL",
		"lat "+d.textType+" NOT NULL",
		"lon "+d.textType+" NOT NULL",
		"hora "+d.textType+" NOT NULL",
		"UNIQUE (linea, unidad, hora)",
	)
	if d.createIndex == "" {
		columns = append(columns, "INDEX positions_datetime_idx (datetime)")
	}
	return "CREATE TABLE IF NOT EXISTS positions (" + strings.Join(columns, ", ") + ")"
}

func (d dialect) insert() string {
	return d.insertPrefix + " positions (datetime, linea, unidad, lat, lon, hora) VALUES (" + d.placeholders(6) + ")" + d.insertSuffix
}

func (d dialect) selectLatest() string {
	return "SELECT datetime, linea, unidad, lat, lon, hora FROM positions ORDER BY datetime DESC, " +
		d.tieBreaker + " DESC LIMIT " + d.placeholder(1)
}

// selectLegacyDatetimes строки, записанные прежней версией в формате 02-01-2006 15:04:05.
func (d dialect) selectLegacyDatetimes() string {
	return "SELECT datetime, linea, unidad, hora FROM positions WHERE datetime LIKE '__-__-____ __:__:__'"
}

func (d dialect) updateDatetime() string {
	return "UPDATE positions SET datetime = " + d.placeholder(1) +
		" WHERE linea = " + d.placeholder(2) + " AND unidad = " + d.placeholder(3) + " AND hora = " + d.placeholder(4)
}

// selectDays сводка по суткам UTC: число отметок, первое и последнее время получения.
func (d dialect) selectDays() string {
	return "SELECT substr(datetime, 1, 10), COUNT(*), MIN(datetime), MAX(datetime) FROM positions " +
		"GROUP BY substr(datetime, 1, 10) ORDER BY substr(datetime, 1, 10) DESC"
}
