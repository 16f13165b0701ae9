package response

import "github.com/daniil11ru/bus-tracker/cli/tracker/types"

// DateLayout формат суток в /status и /days.
const DateLayout = "2006-01-02"

type Day struct {
	Date           string `json:"date"`
	Count          int64  `json:"count"`
	FirstEntryTime string `json:"firstEntryTime"`
	LastEntryTime  string `json:"lastEntryTime"`
}

type Days struct {
	Status string `json:"status"`
	Data   []Day  `json:"data"`
}

func NewDays(summaries []types.DaySummary) Days {
	days := make([]Day, 0, len(summaries))
	for _, s := range summaries {
		days = append(days, Day{
			Date:           s.Day,
			Count:          s.Count,
			FirstEntryTime: s.FirstSeen.Local().Format(DateTimeLayout),
			LastEntryTime:  s.LastSeen.Local().Format(DateTimeLayout),
		})
	}
	return Days{Status: "success", Data: days}
}
