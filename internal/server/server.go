// Package server exposes the local HTTP API: health, metrics, one-shot price
// queries, navigation-event ingestion, and settings.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/exchange"
	"github.com/mohammad-safakhou/dealwatch/internal/overlay"
	"github.com/mohammad-safakhou/dealwatch/internal/predict"
	"github.com/mohammad-safakhou/dealwatch/internal/session"
	"github.com/mohammad-safakhou/dealwatch/internal/settings"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
	"github.com/mohammad-safakhou/dealwatch/internal/watcher"
)

// Deps are the collaborators behind the API routes.
type Deps struct {
	Config   *config.Config
	Fetcher  session.Fetcher
	Settings *settings.Memory
	Session  *session.Manager
	Feed     *watcher.Feed
	Exchange *exchange.Service
	Now      func() time.Time
}

// New assembles the echo instance.
func New(deps Deps) *echo.Echo {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := telemetry.Logger("HTTP")
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if deps.Config == nil || deps.Config.Server.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")
	api.GET("/price/:appid", priceHandler(deps))
	api.POST("/nav", navHandler(deps))
	api.GET("/session", sessionHandler(deps))
	api.GET("/settings", getSettingsHandler(deps))
	api.PUT("/settings", putSettingsHandler(deps))
	if deps.Exchange != nil {
		api.GET("/rates/:base", ratesHandler(deps))
	}
	return e
}

// Run starts the API server and blocks.
func Run(addr string, deps Deps) error {
	return New(deps).Start(addr)
}

func priceHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		appID := c.Param("appid")
		if appID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "appid required")
		}

		prefs := deps.Settings.Snapshot()
		if rng := c.QueryParam("range"); rng != "" {
			prefs.HistoryRange = rng
			if err := prefs.Validate(); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
		}
		store := settings.NewStatic(prefs)

		ctx := c.Request().Context()
		res := deps.Fetcher.Fetch(ctx, appID, catalog.Query{Country: store.Country(), Shops: store.Shops()})

		now := deps.Now()
		var pred *predict.Prediction
		if res.Data != nil && len(res.Data.History) > 0 {
			current := res.Data.History[len(res.Data.History)-1].Amount
			pred = predict.Predict(res.Data.History, current, now)
		}
		cmd := overlay.Build(appID, res, pred, store, now)
		if cmd.Error != "" {
			return c.JSON(http.StatusBadGateway, map[string]interface{}{"command": cmd, "debug": res.Debug})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"command": cmd})
	}
}

func navHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var loc watcher.Location
		if err := c.Bind(&loc); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid navigation event")
		}
		if loc.Path == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "path required")
		}
		deps.Feed.Publish(loc)
		return c.NoContent(http.StatusAccepted)
	}
}

func sessionHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"state":   deps.Session.State().String(),
			"mounted": deps.Session.Mounted(),
			"app_id":  deps.Session.Resolved().Get(),
		})
	}
}

func getSettingsHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, deps.Settings.Snapshot())
	}
}

func putSettingsHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cfg config.SettingsConfig
		if err := c.Bind(&cfg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid settings payload")
		}
		if err := deps.Settings.Update(cfg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, deps.Settings.Snapshot())
	}
}

func ratesHandler(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		rates, err := deps.Exchange.Rates(c.Request().Context(), c.Param("base"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return c.JSON(http.StatusOK, rates)
	}
}
