package source

import (
	"testing"

	"github.com/daniil11ru/bus-tracker/cli/tracker/connector/implementation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectStatements(t *testing.T) {
	tests := []struct {
		driver       string
		insert       string
		selectLatest string
	}{
		{
			driver:       implementation.DriverPostgres,
			insert:       "INSERT INTO positions (datetime, linea, unidad, lat, lon, hora) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (linea, unidad, hora) DO NOTHING",
			selectLatest: "SELECT datetime, linea, unidad, lat, lon, hora FROM positions ORDER BY datetime DESC, id DESC LIMIT $1",
		},
		{
			driver:       implementation.DriverMySQL,
			insert:       "INSERT IGNORE INTO positions (datetime, linea, unidad, lat, lon, hora) VALUES (?, ?, ?, ?, ?, ?)",
			selectLatest: "SELECT datetime, linea, unidad, lat, lon, hora FROM positions ORDER BY datetime DESC, id DESC LIMIT ?",
		},
		{
			driver:       implementation.DriverSQLite,
			insert:       "INSERT INTO positions (datetime, linea, unidad, lat, lon, hora) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (linea, unidad, hora) DO NOTHING",
			selectLatest: "SELECT datetime, linea, unidad, lat, lon, hora FROM positions ORDER BY datetime DESC, rowid DESC LIMIT ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := dialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.insert, d.insert())
			assert.Equal(t, tt.selectLatest, d.selectLatest())
			assert.Contains(t, d.createTable(), "UNIQUE (linea, unidad, hora)")
		})
	}
}

func TestMySQLDialectDeclaresIndexInline(t *testing.T) {
	d, err := dialectFor(implementation.DriverMySQL)
	require.NoError(t, err)
	assert.Contains(t, d.createTable(), "INDEX positions_datetime_idx (datetime)")
}

func TestSQLiteDialectKeepsLegacyLayout(t *testing.T) {
	d, err := dialectFor(implementation.DriverSQLite)
	require.NoError(t, err)

	create := d.createTable()
	assert.NotContains(t, create, " id ")
	assert.Contains(t, create, "hora TEXT NOT NULL")
	assert.Empty(t, d.upgrade)
}

func TestTextColumnTypes(t *testing.T) {
	postgres, err := dialectFor(implementation.DriverPostgres)
	require.NoError(t, err)
	assert.Contains(t, postgres.createTable(), "hora TEXT NOT NULL")
	assert.Equal(t, "ALTER TABLE positions ADD COLUMN IF NOT EXISTS id BIGSERIAL", postgres.upgrade)

	mysql, err := dialectFor(implementation.DriverMySQL)
	require.NoError(t, err)
	assert.Contains(t, mysql.createTable(), "hora VARCHAR(255) NOT NULL")
}

func TestUpdateDatetimePlaceholders(t *testing.T) {
	postgres, err := dialectFor(implementation.DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE positions SET datetime = $1 WHERE linea = $2 AND unidad = $3 AND hora = $4", postgres.updateDatetime())

	sqlite, err := dialectFor(implementation.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE positions SET datetime = ? WHERE linea = ? AND unidad = ? AND hora = ?", sqlite.updateDatetime())
}

func TestUnknownDialect(t *testing.T) {
	_, err := dialectFor("oracle")
	assert.Error(t, err)
}
