package main

import (
	"context"

	"github.com/KarpovAlexandrGo/task-tracker/internal/app"
	"github.com/KarpovAlexandrGo/task-tracker/internal/config"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
)

// @title           Task Manager API
// @version         1.0
// @description     REST API для управления задачами: приоритеты, категории и сроки.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:5001
// @BasePath  /api/tasks

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load config")
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Log.WithError(err).Warn("Invalid LOG_LEVEL, using info")
	}

	a, err := app.NewApp(context.Background(), cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize app")
	}

	if err := a.Run(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to run app")
	}
}
