package response

// Status имена полей совпадают с /status прежней версии сервиса.
type Status struct {
	Status         string   `json:"status"`
	Uptime         string   `json:"uptime"`
	Date           string   `json:"date"`
	TotalPositions int64    `json:"totalPositions"`
	RecentErrors   []string `json:"recentErrors"`
}
