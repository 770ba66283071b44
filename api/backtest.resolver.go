package api

import (
	"factorlab/internal/config"

	"github.com/gin-gonic/gin"
)

// backtest takes the same document as the yaml config file, as json
func (h ApiHandler) backtest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}
	cfg, err := config.ParseJSON(body)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	result, err := h.BacktestApp.Backtest(h.requestContext(c), cfg)
	h.Metrics.observeRun("backtest", err)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	h.Metrics.forcedCloses.Add(float64(result.Summary.Positions.ForcedClose))

	c.JSON(200, result)
}
