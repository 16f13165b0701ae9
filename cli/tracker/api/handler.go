package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/daniil11ru/bus-tracker/cli/tracker/api/dto/response"
	"github.com/daniil11ru/bus-tracker/cli/tracker/types"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LatestPositions interface {
	Run(ctx context.Context, limit uint) ([]types.Position, error)
}

// StoreSummary сведения о хранилище для /status и /days.
type StoreSummary interface {
	CountPositions(ctx context.Context) (int64, error)
	GetDaySummaries(ctx context.Context) ([]types.DaySummary, error)
}

type RecentErrors interface {
	Entries() []string
}

type Handler struct {
	LatestPositions LatestPositions
	Store           StoreSummary
	RecentErrors    RecentErrors
	DefaultLimit    uint
	StartedAt       time.Time
}

func NewHandler(latestPositions LatestPositions, store StoreSummary, recentErrors RecentErrors, defaultLimit uint) *Handler {
	return &Handler{
		LatestPositions: latestPositions,
		Store:           store,
		RecentErrors:    recentErrors,
		DefaultLimit:    defaultLimit,
		StartedAt:       time.Now(),
	}
}

func (h *Handler) GetPositions(c *gin.Context) {
	limit := h.DefaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.ParseUint(limitStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit должен быть неотрицательным целым числом"})
			return
		}
		limit = uint(parsed)
	}

	positions, err := h.LatestPositions.Run(c.Request.Context(), limit)
	if err != nil {
		log.WithField("err", err).Error("Не удалось получить последние отметки")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось получить отметки"})
		return
	}

	c.JSON(http.StatusOK, response.NewPositions(positions))
}

func (h *Handler) GetStatus(c *gin.Context) {
	total, err := h.Store.CountPositions(c.Request.Context())
	if err != nil {
		log.WithField("err", err).Error("Не удалось подсчитать отметки")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось подсчитать отметки"})
		return
	}

	recent := []string{}
	if h.RecentErrors != nil {
		recent = h.RecentErrors.Entries()
	}

	c.JSON(http.StatusOK, response.Status{
		Status:         "running",
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		Date:           time.Now().Format(response.DateLayout),
		TotalPositions: total,
		RecentErrors:   recent,
	})
}

func (h *Handler) GetDays(c *gin.Context) {
	summaries, err := h.Store.GetDaySummaries(c.Request.Context())
	if err != nil {
		log.WithField("err", err).Error("Не удалось получить сводку по суткам")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "не удалось получить сводку по суткам"})
		return
	}

	c.JSON(http.StatusOK, response.NewDays(summaries))
}

const indexPage = `<h1>bus-tracker</h1>
<ul>
  <li><a href="/positions">GET /positions?limit=N</a> - последние отметки, сначала новые.</li>
  <li><a href="/status">GET /status</a> - состояние сервиса.</li>
  <li><a href="/days">GET /days</a> - число отметок по суткам.</li>
  <li><a href="/health">GET /health</a> - проверка доступности.</li>
</ul>
`

func (h *Handler) GetIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
