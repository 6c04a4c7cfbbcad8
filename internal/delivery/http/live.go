package http

import (
	"net/http"

	"golang-crossover/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupLive(base *echo.Group) {
	liveGroup := base.Group("/live")
	{
		liveGroup.GET("/status", h.liveStatus)
		liveGroup.GET("/trades", h.liveTrades)
	}
}

func (h *HttpAPIHandler) liveStatus(c echo.Context) error {
	status, err := h.service.LiveTrader.Status()
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("live status", status))
}

func (h *HttpAPIHandler) liveTrades(c echo.Context) error {
	trades, err := h.service.LiveTrader.Trades()
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("live trades", trades))
}
