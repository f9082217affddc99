package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/riandyrn/otelchi"

	"github.com/textchain/textchain/pkg/auth"
	"github.com/textchain/textchain/pkg/models"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	RouterName        = "textchain-api"
)

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) *http.Server {
	router := setupRouter(appState)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", appState.Config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

// @title						Textchain REST API
// @version					0.x
// @license.name				Apache 2.0
// @license.url				http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath					/api/v1
// @schemes					http https
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and JWT token.
func setupRouter(appState *models.AppState) *chi.Mux {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))

	if len(appState.Config.Server.CustomHeaders) > 0 {
		router.Use(ApplyCustomHeaders(appState.Config.Server.CustomHeaders))
	}

	if appState.Config.OpenTelemetry.Enabled {
		router.Use(otelchi.Middleware(
			RouterName,
			otelchi.WithChiRoutes(router),
			otelchi.WithRequestMethodInSpanName(true),
		))
	}

	if appState.Config.Auth.Required {
		log.Info("JWT authentication required")
		router.Use(auth.JWTVerifier(appState.Config))
		router.Use(jwtauth.Authenticator)
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Creating a run executes the chain. It works without a store, the
		// run is just not persisted.
		r.Post("/runs", CreateRunHandler(appState))

		// Run history routes. Only available when a run store is configured.
		if appState.RunStore != nil {
			r.Get("/runs", GetRunListHandler(appState))
			r.Route("/runs/{runUUID}", func(r chi.Router) {
				r.Get("/", GetRunHandler(appState))
				r.Patch("/", UpdateRunMetadataHandler(appState))
				r.Delete("/", DeleteRunHandler(appState))
			})
		} else {
			log.Warn("run store not configured; run history routes are disabled")
		}
	})

	return router
}
