// Package http - HTTP Server: конфигурация и lifecycle.
//
// Server оборачивает net/http сервер поверх gin router и добавляет
// graceful shutdown: по сигналу ОС или отмене контекста приём новых
// соединений прекращается, активные запросы дорабатывают до конца.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// ============================================
// Server Configuration
// ============================================

// ServerConfig - конфигурация HTTP сервера.
type ServerConfig struct {
	// Host для прослушивания (e.g., "0.0.0.0", "localhost")
	Host string
	// Port для прослушивания
	Port string
	// ReadTimeout - максимальное время чтения запроса целиком
	ReadTimeout time.Duration
	// ReadHeaderTimeout - максимальное время чтения заголовков
	ReadHeaderTimeout time.Duration
	// WriteTimeout - максимальное время записи ответа
	WriteTimeout time.Duration
	// IdleTimeout - время жизни keep-alive соединения без запросов
	IdleTimeout time.Duration
	// ShutdownTimeout - сколько ждать завершения активных запросов
	ShutdownTimeout time.Duration
	// Logger для логирования
	Logger *slog.Logger
}

// DefaultServerConfig - конфигурация по умолчанию.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:              "0.0.0.0",
		Port:              "8080",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		Logger:            slog.Default(),
	}
}

// Address возвращает адрес для прослушивания.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ============================================
// Server
// ============================================

// Server - HTTP сервер с graceful shutdown.
type Server struct {
	config     *ServerConfig
	httpServer *http.Server
	router     *gin.Engine
}

// NewServer создаёт новый HTTP сервер поверх готового router.
func NewServer(config *ServerConfig, router *gin.Engine) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           router,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return &Server{
		config:     config,
		httpServer: httpServer,
		router:     router,
	}
}

// Start запускает сервер и блокируется до его остановки.
// Штатная остановка через Shutdown ошибкой не считается.
func (s *Server) Start() error {
	s.config.Logger.Info("Starting HTTP server",
		slog.String("address", s.config.Address()),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// StartTLS запускает HTTPS сервер.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.config.Logger.Info("Starting HTTPS server",
		slog.String("address", s.config.Address()),
	)

	if err := s.httpServer.ListenAndServeTLS(certFile, keyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown выполняет graceful shutdown в пределах ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.config.Logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		return err
	}

	s.config.Logger.Info("HTTP server stopped gracefully")
	return nil
}

// ============================================
// Run with Graceful Shutdown
// ============================================

// Run запускает сервер и останавливает его по SIGINT или SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return s.RunWithContext(ctx)
}

// RunWithContext запускает сервер и останавливает его при отмене
// контекста. Удобно для тестов и программного управления.
func (s *Server) RunWithContext(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- s.Start()
	}()

	select {
	case err := <-errChan:
		// Сервер упал до отмены контекста - shutdown уже не нужен
		return err
	case <-ctx.Done():
		s.config.Logger.Info("Shutdown requested, draining connections")
	}

	return s.Shutdown(context.Background())
}

// ============================================
// Helper Functions
// ============================================

// QuickStart - запуск сервера с дефолтной конфигурацией на заданном
// адресе вида "host:port" или ":port".
//
// Использование:
//
//	router := http.NewDevelopmentRouter()
//	http.QuickStart(router, ":8080")
func QuickStart(router *gin.Engine, addr string) error {
	config := DefaultServerConfig()

	if host, port, err := net.SplitHostPort(addr); err == nil {
		config.Host = host
		config.Port = port
	}

	server := NewServer(config, router)
	return server.Run()
}
