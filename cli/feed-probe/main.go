package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/daniil11ru/bus-tracker/cli/tracker/config"
	"github.com/daniil11ru/bus-tracker/cli/tracker/feed"
)

/*
Проверка внешнего API отметок.

Запрашивает текущие отметки одной линии и печатает разобранный результат.

Usage:
  -line int
    	Идентификатор линии (обязательно)
  -url string
    	Адрес API отметок (по умолчанию https://www.jaha.com.py/api/posicionColectivos)
  -param string
    	Имя параметра линии в запросе (по умолчанию linea)
  -timeout int
    	Таймаут запроса в секундах, по умолчанию 10

Example

```
./feed-probe -line 3
```
*/

func main() {
	line := 0
	positionsURL := ""
	lineParam := ""
	timeout := 0

	flag.IntVar(&line, "line", 0, "Идентификатор линии (обязательно)")
	flag.StringVar(&positionsURL, "url", config.DefaultPositionsURL, "Адрес API отметок")
	flag.StringVar(&lineParam, "param", config.DefaultLineParam, "Имя параметра линии в запросе")
	flag.IntVar(&timeout, "timeout", 10, "Таймаут запроса в секундах")

	flag.Parse()

	if line <= 0 {
		fmt.Println("Требуется идентификатор линии, смотрите помощь (-h)")
		os.Exit(1)
	}

	client := feed.NewClient(positionsURL, "", time.Duration(timeout)*time.Second, feed.DefaultMaxResponseBytes)
	client.LineParam = lineParam

	positions, err := client.FetchPositions(context.Background(), int32(line))
	if err != nil {
		var fetchErr *feed.FetchError
		if errors.As(err, &fetchErr) {
			fmt.Printf("Ошибка запроса (%s): %v\n", fetchErr.Kind, err)
		} else {
			fmt.Printf("Ошибка запроса: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Линия %d: получено отметок %d\n", line, len(positions))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "unidad\tlat\tlon\thora")
	for _, p := range positions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.VehicleID, p.Latitude, p.Longitude, p.ReportTime)
	}
	w.Flush()
}
