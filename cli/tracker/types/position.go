package types

import "time"

// MaxTextLength предельная длина текстовых полей отметки (lat, lon, hora).
// Под неё рассчитаны VARCHAR-колонки MySQL, где INSERT IGNORE молча обрезал бы
// длинное значение.
const MaxTextLength = 255

// Position одна отметка местоположения транспортной единицы, полученная из внешнего API.
type Position struct {
	CapturedAt time.Time `json:"captured_at" msgpack:"captured_at"`
	LineID     int32     `json:"linea" msgpack:"linea"`
	VehicleID  int32     `json:"unidad" msgpack:"unidad"`
	Latitude   string    `json:"lat" msgpack:"lat"`
	Longitude  string    `json:"lon" msgpack:"lon"`
	ReportTime string    `json:"hora" msgpack:"hora"`
}

// Key естественный ключ отметки: линия, транспортная единица и время отчёта.
type Key struct {
	LineID     int32
	VehicleID  int32
	ReportTime string
}

func (p Position) Key() Key {
	return Key{LineID: p.LineID, VehicleID: p.VehicleID, ReportTime: p.ReportTime}
}

// DaySummary сводка хранилища за одни сутки (UTC).
type DaySummary struct {
	Day       string
	Count     int64
	FirstSeen time.Time
	LastSeen  time.Time
}
