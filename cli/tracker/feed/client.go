package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
)

const DefaultMaxResponseBytes int64 = 1 << 20

var (
	ErrMissingPositions  = errors.New("в ответе отсутствует массив positions")
	ErrMalformedPosition = errors.New("некорректная отметка")
)

// RawPosition отметка в том виде, в котором её отдаёт внешний API.
type RawPosition struct {
	VehicleID  int32
	Latitude   string
	Longitude  string
	ReportTime string
}

type Client struct {
	PositionsURL     string
	LineParam        string
	LinesURL         string
	MaxResponseBytes int64

	httpClient *http.Client
}

func NewClient(positionsURL, linesURL string, timeout time.Duration, maxResponseBytes int64) *Client {
	if maxResponseBytes <= 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}
	return &Client{
		PositionsURL:     positionsURL,
		LineParam:        "linea",
		LinesURL:         linesURL,
		MaxResponseBytes: maxResponseBytes,
		httpClient:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) lineURL(lineID int32) (string, error) {
	u, err := url.Parse(c.PositionsURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(c.LineParam, strconv.Itoa(int(lineID)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPositions запрашивает текущие отметки по одной линии.
func (c *Client) FetchPositions(ctx context.Context, lineID int32) ([]RawPosition, error) {
	if lineID <= 0 {
		return nil, &FetchError{LineID: lineID, Kind: KindMalformed, Err: fmt.Errorf("некорректный идентификатор линии")}
	}

	target, err := c.lineURL(lineID)
	if err != nil {
		return nil, &FetchError{LineID: lineID, Kind: KindTransport, Err: err}
	}

	body, err := c.get(ctx, target)
	if err != nil {
		if fe, ok := err.(*FetchError); ok {
			fe.LineID = lineID
		}
		return nil, err
	}

	positions, err := ParsePositions(body)
	if err != nil {
		return nil, &FetchError{LineID: lineID, Kind: KindMalformed, Err: err}
	}
	return positions, nil
}

// FetchLines запрашивает перечень линий.
func (c *Client) FetchLines(ctx context.Context) ([]int32, error) {
	if c.LinesURL == "" {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("не задан адрес перечня линий")}
	}

	body, err := c.get(ctx, c.LinesURL)
	if err != nil {
		return nil, err
	}

	lines, err := ParseLines(body)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, Err: err}
	}
	return lines, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindStatus, Err: fmt.Errorf("HTTP статус %d", resp.StatusCode)}
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, c.MaxResponseBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	if n > c.MaxResponseBytes {
		return nil, &FetchError{Kind: KindTooLarge, Err: fmt.Errorf("ответ превышает %d байт", c.MaxResponseBytes)}
	}

	return buf.Bytes(), nil
}

type rawItem struct {
	VehicleID json.RawMessage `json:"vehicleId"`
	Unidad    json.RawMessage `json:"unidad"`
	Lat       json.RawMessage `json:"lat"`
	Lon       json.RawMessage `json:"lon"`
	Hora      json.RawMessage `json:"hora"`
}

// ParsePositions разбирает ответ API. Пакет принимается целиком или отклоняется целиком.
func ParsePositions(body []byte) ([]RawPosition, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("некорректный JSON: %w", err)
	}

	rawPositions, ok := payload["positions"]
	if !ok || isNull(rawPositions) {
		return nil, ErrMissingPositions
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(rawPositions, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPositions, err)
	}

	positions := make([]RawPosition, 0, len(elements))
	for i, element := range elements {
		var item rawItem
		if err := json.Unmarshal(element, &item); err != nil {
			return nil, fmt.Errorf("%w №%d: %v", ErrMalformedPosition, i, err)
		}
		position, err := item.toRawPosition()
		if err != nil {
			return nil, fmt.Errorf("%w №%d: %w", ErrMalformedPosition, i, err)
		}
		positions = append(positions, position)
	}

	return positions, nil
}

func (item rawItem) toRawPosition() (RawPosition, error) {
	idRaw := item.VehicleID
	if isNull(idRaw) {
		idRaw = item.Unidad
	}

	vehicleID, err := intValue(idRaw)
	if err != nil {
		return RawPosition{}, fmt.Errorf("поле vehicleId: %w", err)
	}
	lat, err := textValue(item.Lat)
	if err != nil {
		return RawPosition{}, fmt.Errorf("поле lat: %w", err)
	}
	lon, err := textValue(item.Lon)
	if err != nil {
		return RawPosition{}, fmt.Errorf("поле lon: %w", err)
	}
	hora, err := textValue(item.Hora)
	if err != nil {
		return RawPosition{}, fmt.Errorf("поле hora: %w", err)
	}

	return RawPosition{VehicleID: vehicleID, Latitude: lat, Longitude: lon, ReportTime: hora}, nil
}

// ParseLines разбирает перечень линий: массив объектов с полем id.
func ParseLines(body []byte) ([]int32, error) {
	var items []struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("некорректный перечень линий: %w", err)
	}

	lines := make([]int32, 0, len(items))
	for i, item := range items {
		id, err := intValue(item.ID)
		if err != nil {
			return nil, fmt.Errorf("линия №%d: %w", i, err)
		}
		if id <= 0 {
			return nil, fmt.Errorf("линия №%d: некорректный идентификатор %d", i, id)
		}
		lines = append(lines, id)
	}
	return lines, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// textValue возвращает строку как есть, а число в исходной записи, без потери точности.
func textValue(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", errors.New("значение отсутствует")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", errors.New("пустое значение")
		}
		if utf8.RuneCountInString(s) > types.MaxTextLength {
			return "", fmt.Errorf("значение длиннее %d символов", types.MaxTextLength)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("ожидалась строка или число: %s", string(raw))
	}
	if len(n) > types.MaxTextLength {
		return "", fmt.Errorf("значение длиннее %d символов", types.MaxTextLength)
	}
	return n.String(), nil
}

func intValue(raw json.RawMessage) (int32, error) {
	s, err := textValue(raw)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("ожидалось целое число: %s", s)
	}
	return int32(v), nil
}
