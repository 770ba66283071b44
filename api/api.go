package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"factorlab/internal/app"
	"factorlab/internal/domain"
	"factorlab/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ApiHandler struct {
	BacktestApp app.BacktestApp
	Metrics     *Metrics
	Log         *zap.SugaredLogger
}

func NewApiHandler(backtestApp app.BacktestApp, log *zap.SugaredLogger) *ApiHandler {
	return &ApiHandler{
		BacktestApp: backtestApp,
		Metrics:     NewMetrics(),
		Log:         log,
	}
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(m.Metrics.middleware)
	router.Use(m.logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to factorlab"})
	})
	router.GET("/metrics", m.Metrics.handler())
	router.POST("/backtest", m.backtest)
	router.POST("/rank", m.rank)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	return m.InitializeRouterEngine().Run(fmt.Sprintf(":%d", port))
}

// requestContext carries the request logger into the app layer
func (m ApiHandler) requestContext(c *gin.Context) context.Context {
	log := m.Log
	if v, ok := c.Get(logger.ContextKey); ok {
		log = v.(*zap.SugaredLogger)
	}
	return logger.WithContext(c.Request.Context(), log)
}

func returnErrorJson(err error, c *gin.Context) {
	code := http.StatusInternalServerError
	var cfgErr domain.ConfigurationError
	var malformed domain.MalformedInputError
	if errors.As(err, &cfgErr) || errors.As(err, &malformed) {
		code = http.StatusBadRequest
	}
	returnErrorJsonCode(err, c, code)
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (m ApiHandler) logRequestMiddleware(c *gin.Context) {
	requestID := uuid.New()
	log := m.Log.With(
		"requestId", requestID.String(),
		"method", c.Request.Method,
		"route", c.Request.URL.Path,
	)
	c.Set(logger.ContextKey, log)

	w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
	c.Writer = w

	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	if status >= 400 {
		log.Warnw("request failed",
			"status", status,
			"durationMs", time.Since(start).Milliseconds(),
			"response", w.body.String(),
		)
		return
	}
	log.Infow("request completed",
		"status", status,
		"durationMs", time.Since(start).Milliseconds(),
	)
}
