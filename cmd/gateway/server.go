package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/doodlemint/doodlemint/internal/cmdutil"
	"github.com/doodlemint/doodlemint/internal/metrics"
	"github.com/doodlemint/doodlemint/pkg/build"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/content/localstore"
)

// immutableCacheControl is what IPFS gateways send for /ipfs/ responses.
const immutableCacheControl = "public, max-age=29030400, immutable"

// NewServer routes /ipfs/<cid> to store and /metrics to the process
// registry.
func NewServer(store *localstore.Store) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger(log))
	e.Use(middleware.Recover())

	e.GET("/", rootHandler)
	e.GET("/ipfs/:cid", objectHandler(store))
	e.HEAD("/ipfs/:cid", objectHandler(store))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

func rootHandler(c echo.Context) error {
	return c.String(http.StatusOK, fmt.Sprintf("doodlemint gateway %s\n", build.Version))
}

func objectHandler(store *localstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := cmdutil.ContentCID(c.Param("cid"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		etag := strconv.Quote(id.String())
		if c.Request().Header.Get("If-None-Match") == etag {
			return c.NoContent(http.StatusNotModified)
		}

		b, err := store.Get(id)
		if err != nil {
			if content.IsNotFound(err) {
				return echo.NewHTTPError(http.StatusNotFound, "not found")
			}
			if errors.Is(err, content.ErrCIDMismatch) {
				log.Errorw("stored object is corrupt", "cid", id, "err", err)
			}
			return err
		}

		h := c.Response().Header()
		h.Set("Etag", etag)
		h.Set("Cache-Control", immutableCacheControl)
		h.Set("X-Ipfs-Path", "/ipfs/"+id.String())
		if c.Request().Method == http.MethodHead {
			h.Set(echo.HeaderContentType, contentType(b))
			h.Set(echo.HeaderContentLength, strconv.Itoa(len(b)))
			return c.NoContent(http.StatusOK)
		}
		return c.Blob(http.StatusOK, contentType(b), b)
	}
}

// contentType reports metadata documents as JSON and sniffs everything else.
func contentType(b []byte) string {
	if json.Valid(b) {
		return echo.MIMEApplicationJSON
	}
	return http.DetectContentType(b)
}

func requestLogger(log *logging.ZapEventLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			metrics.GatewayRequests.WithLabelValues(strconv.Itoa(v.Status)).Inc()
			if v.Error != nil {
				log.Warnw("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
				return nil
			}
			log.Debugw("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	})
}
