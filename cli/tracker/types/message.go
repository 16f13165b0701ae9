package types

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const (
	FormatJSON     = "json"
	FormatMsgpack  = "msgpack"
	FormatProtobuf = "protobuf"
)

// PositionMessage отметка, сериализуемая в заданном формате для выходных хранилищ.
type PositionMessage struct {
	Position Position
	Format   string
}

func IsKnownFormat(format string) bool {
	switch format {
	case FormatJSON, FormatMsgpack, FormatProtobuf:
		return true
	}
	return false
}

func (m PositionMessage) ToBytes() ([]byte, error) {
	switch m.Format {
	case "", FormatJSON:
		return json.Marshal(m.Position)
	case FormatMsgpack:
		return msgpack.Marshal(m.Position)
	case FormatProtobuf:
		s, err := structpb.NewStruct(map[string]interface{}{
			"captured_at": m.Position.CapturedAt.UTC().Format(time.RFC3339Nano),
			"linea":       float64(m.Position.LineID),
			"unidad":      float64(m.Position.VehicleID),
			"lat":         m.Position.Latitude,
			"lon":         m.Position.Longitude,
			"hora":        m.Position.ReportTime,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка формирования protobuf-сообщения: %w", err)
		}
		return proto.Marshal(s)
	default:
		return nil, fmt.Errorf("неизвестный формат сериализации: %s", m.Format)
	}
}
