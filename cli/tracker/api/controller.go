package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Controller struct {
	Handler *Handler
	router  *gin.Engine
}

func NewController(handler *Handler) *Controller {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/", handler.GetIndex)
	router.GET("/positions", handler.GetPositions)
	router.GET("/status", handler.GetStatus)
	router.GET("/days", handler.GetDays)
	router.GET("/health", handler.GetHealth)

	return &Controller{Handler: handler, router: router}
}

func (c *Controller) Router() http.Handler {
	return c.router
}

// NewServer HTTP-сервер API; запуск и остановка остаются за вызывающей стороной.
func (c *Controller) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           c.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Microsecond),
		}).Debug("Запрос API")
	}
}
