package api

import (
	"encoding/json"
	"fmt"

	"factorlab/internal/config"
	"factorlab/internal/util"

	"github.com/gin-gonic/gin"
)

type RankRequest struct {
	Date   string          `json:"date"`
	Config json.RawMessage `json:"config"`
}

func (h ApiHandler) rank(c *gin.Context) {
	var requestBody RankRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	date, err := util.ParseDate(requestBody.Date)
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse date: %w", err), c, 400)
		return
	}
	cfg, err := config.ParseJSON(requestBody.Config)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	result, err := h.BacktestApp.Rank(h.requestContext(c), cfg, date)
	h.Metrics.observeRun("rank", err)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, result)
}
