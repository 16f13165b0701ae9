package response

import "github.com/daniil11ru/bus-tracker/cli/tracker/types"

// DateTimeLayout формат поля datetime, совместимый с прежним API.
const DateTimeLayout = "02-01-2006 15:04:05"

type Position struct {
	DateTime string `json:"datetime"`
	Linea    int32  `json:"linea"`
	Unidad   int32  `json:"unidad"`
	Lat      string `json:"lat"`
	Lon      string `json:"lon"`
	Hora     string `json:"hora"`
}

func NewPositions(positions []types.Position) []Position {
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		out = append(out, Position{
			DateTime: p.CapturedAt.Local().Format(DateTimeLayout),
			Linea:    p.LineID,
			Unidad:   p.VehicleID,
			Lat:      p.Latitude,
			Lon:      p.Longitude,
			Hora:     p.ReportTime,
		})
	}
	return out
}
