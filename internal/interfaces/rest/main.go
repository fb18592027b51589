package rest

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/lessonrelay/internal/domain"
	infra "github.com/pot-code/lessonrelay/internal/infrastructure"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/pot-code/lessonrelay/internal/infrastructure/uuid"
	"github.com/pot-code/lessonrelay/internal/infrastructure/validate"
	"github.com/pot-code/lessonrelay/internal/interfaces/rest/handler"
	"github.com/pot-code/lessonrelay/internal/interfaces/rest/middleware"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// Dependencies collaborators of the http transport
type Dependencies struct {
	Processor handler.ActionProcessor
	Media     domain.MediaStorage
	Store     domain.Store
	Websocket *infra.Websocket
	Health    map[string]handler.Pinger
	IDGen     uuid.Generator
	Logger    *zap.Logger
}

// NewServer create the http transport
func NewServer(option *infra.AppConfig, deps *Dependencies) *echo.Echo {
	var (
		app       = echo.New()
		logger    = deps.Logger
		validator = validate.NewValidator(option.Security.Locale)
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.SessionTimeout)
		jwtMiddleware     = middleware.VerifyToken(jwtUtil)
		wsJWTMiddleware   = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{QueryParam: "token"})
		refreshMiddleware = middleware.RefreshToken(jwtUtil)
	)
	app.HideBanner = true

	healthHandler := handler.NewHealthHandler(deps.Health)
	app.GET("/healthz", healthHandler.HandleLiveness)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}

	app.Use(echo_middleware.RequestIDWithConfig(echo_middleware.RequestIDConfig{
		Generator: uuid.Func(deps.IDGen),
	}))
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(e echo.Context) bool {
			return strings.HasPrefix(e.Request().RequestURI, "/healthz")
		},
	}))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(http.StatusInternalServerError,
					handler.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
				)
				logger.Error(err.Error(), zap.String("trace.id", traceID))
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(e echo.Context) bool {
			return strings.HasSuffix(e.Path(), "/ws")
		},
	}))

	var (
		ActionHandler = handler.NewActionHandler(deps.Processor, jwtUtil, validator, option.Media.MaxBytes)
		MediaHandler  = handler.NewMediaHandler(deps.Media, deps.Store, jwtUtil)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix:      "/actions",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
					routes: []*route{
						{"POST", "", ActionHandler.HandlePostAction, nil},
					},
				},
				{
					prefix:      "/media",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
					routes: []*route{
						{"GET", "/*", MediaHandler.HandleGetMedia, nil},
					},
				},
				{
					prefix:      "/ws",
					middlewares: []echo.MiddlewareFunc{wsJWTMiddleware},
					routes: []*route{
						{"GET", "", deps.Websocket.WithHeartbeat(handler.IdentifyFromToken(jwtUtil)), nil},
					},
				},
			},
		})

	printRoutes(app, logger)
	return app
}

// Serve create http transport server and block until ctx is done or the server fails
func Serve(ctx context.Context, option *infra.AppConfig, deps *Dependencies) error {
	app := NewServer(option, deps)
	errc := make(chan error, 1)
	go func() {
		errc <- app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	deps.Logger.Info("Shutting down http server")
	deps.Websocket.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Info("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
