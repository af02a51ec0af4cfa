package http

import (
	"net/http"
	"time"

	_ "github.com/KarpovAlexandrGo/task-tracker/docs"
	"github.com/KarpovAlexandrGo/task-tracker/internal/metrics"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterConfig struct {
	BasePath       string
	TaskUseCase    usecase.TaskUseCase
	Metrics        *metrics.Metrics
	StorageMode    string
	RequestTimeout time.Duration
}

type statusResponse struct {
	Message string `json:"message"`
	Storage string `json:"storage"`
}

// NewRouter собирает роутер сервиса: middleware, служебные маршруты,
// Swagger UI и API задач под cfg.BasePath. Глобальное состояние не меняется,
// basePath документации выставляет приложение.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()

	router.Use(
		middleware.RequestID,
		RequestLogger,
		Recoverer,
	)
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
	}
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.Heartbeat("/health"),
		middleware.Timeout(cfg.RequestTimeout),
	)

	router.NotFound(notFound)
	router.MethodNotAllowed(methodNotAllowed)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, statusResponse{
			Message: "Task Manager API is running",
			Storage: cfg.StorageMode,
		})
	})

	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	NewTaskHandler(cfg.TaskUseCase).RegisterRoutes(router, cfg.BasePath)

	return router
}
