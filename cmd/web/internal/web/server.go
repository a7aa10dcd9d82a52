package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"thirdcoast.systems/mediagrab/cmd/web/handlers/api/media_api"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/common"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/content"
	staticpkg "thirdcoast.systems/mediagrab/cmd/web/internal/web/utils/static"
)

// Options tunes the HTTP surface.
type Options struct {
	// BodyLimit caps request bodies, e.g. "2M".
	BodyLimit string

	// RateLimit is the sustained requests per second allowed per client IP
	// on /api routes. 0 disables limiting.
	RateLimit float64
}

type Webserver struct {
	*echo.Echo
	media       media_api.Service
	staticCache *staticpkg.StaticCache
	opts        Options
}

func NewWebserver(ctx context.Context, svc media_api.Service, opts Options) (*Webserver, error) {
	e := echo.New()

	// Initialize static cache
	staticCache, err := staticpkg.NewStaticCache()
	if err != nil {
		return nil, err
	}

	if opts.BodyLimit == "" {
		opts.BodyLimit = "2M"
	}

	webserver := &Webserver{
		Echo:        e,
		media:       svc,
		staticCache: staticCache,
		opts:        opts,
	}

	if err = webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	if err = webserver.registerRoutes(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = common.JSONErrorHandler

	s.Use(middleware.BodyLimit(s.opts.BodyLimit))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// media is already compressed and ServeContent needs exact
			// byte ranges
			return c.Path() == "/api/download"
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
				if he, ok := v.Error.(*echo.HTTPError); ok && he.Internal != nil {
					fields = append(fields, "cause", he.Internal)
				}
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) rateLimiter() echo.MiddlewareFunc {
	burst := int(s.opts.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.opts.RateLimit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests").SetInternal(err)
		},
	})
}

func (s *Webserver) registerRoutes() error {
	s.GET("/", content.HandleHomePage())
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	apiGroup := s.Group("/api")
	if s.opts.RateLimit > 0 {
		apiGroup.Use(s.rateLimiter())
	}
	apiGroup.POST("/info", media_api.HandleInfo(s.media))
	apiGroup.POST("/info/card", media_api.HandleInfoCard(s.media))
	apiGroup.GET("/download", media_api.HandleDownload(s.media))

	// Static file serving
	s.GET("/static/*", s.staticCache.ServeStaticFile("/static/"))

	return nil
}
