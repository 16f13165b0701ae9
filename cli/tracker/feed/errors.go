package feed

import "fmt"

type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindTooLarge  Kind = "too_large"
	KindMalformed Kind = "malformed"
)

// FetchError ошибка получения данных по линии. Не фатальна для цикла опроса.
type FetchError struct {
	LineID int32
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	if e.LineID == 0 {
		return fmt.Sprintf("ошибка запроса к API (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ошибка запроса к API по линии %d (%s): %v", e.LineID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
