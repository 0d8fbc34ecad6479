package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Haleralex/ledgerhub/internal/config"
	"github.com/Haleralex/ledgerhub/internal/container"
)

func main() {
	// .env для локальной разработки; в production конфигурация
	// приходит через окружение, отсутствие файла - не ошибка
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("LEDGERHUB_CONFIG_PATH", "configs"), "config")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	c := container.New(cfg)

	if err := c.Initialize(context.Background()); err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}

	if err := c.Run(); err != nil {
		c.Logger().Error("server error", "error", err.Error())
		os.Exit(1)
	}

	c.Logger().Info("Server stopped gracefully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
