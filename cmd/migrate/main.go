// Command migrate применяет SQL миграции схемы ledgerhub.
//
// Использование:
//
//	migrate -command up
//	migrate -command down -steps 1
//	migrate version
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	log.SetFlags(0)

	var (
		migrationsPath string
		databaseURL    string
		command        string
		steps          int
	)

	flag.StringVar(&migrationsPath, "path", "./migrations", "Path to migrations directory")
	flag.StringVar(&databaseURL, "database-url", "", "Database connection URL")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, force, version, drop")
	flag.IntVar(&steps, "steps", 0, "Number of steps for up/down (0 = all)")
	flag.Parse()

	// Позиционные аргументы перекрывают флаги: `migrate down 1`
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
	}
	if len(args) > 1 {
		var err error
		steps, err = strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("invalid steps argument: %v", err)
		}
	}

	if databaseURL == "" {
		databaseURL = resolveDatabaseURL()
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	m.Log = &migrationLogger{}

	if err := run(m, command, steps); err != nil {
		log.Fatal(err)
	}
}

// resolveDatabaseURL собирает URL из DATABASE_URL либо из отдельных
// LEDGERHUB_DATABASE_* переменных.
func resolveDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnvOrDefault("LEDGERHUB_DATABASE_HOST", "localhost")
	port := getEnvOrDefault("LEDGERHUB_DATABASE_PORT", "5432")
	user := getEnvOrDefault("LEDGERHUB_DATABASE_USER", "postgres")
	password := getEnvOrDefault("LEDGERHUB_DATABASE_PASSWORD", "postgres")
	dbname := getEnvOrDefault("LEDGERHUB_DATABASE_NAME", "ledgerhub")
	sslmode := getEnvOrDefault("LEDGERHUB_DATABASE_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

func run(m *migrate.Migrate, command string, steps int) error {
	switch command {
	case "up":
		var err error
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up failed: %w", err)
		}
		fmt.Println("Migrations applied successfully")
		return nil

	case "down":
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration down failed: %w", err)
		}
		fmt.Println("Migrations rolled back successfully")
		return nil

	case "force":
		if steps == 0 {
			return errors.New("force requires a version argument")
		}
		if err := m.Force(steps); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		fmt.Printf("Forced version to %d\n", steps)
		return nil

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)
		return nil

	case "drop":
		if err := m.Drop(); err != nil {
			return fmt.Errorf("drop failed: %w", err)
		}
		fmt.Println("All tables dropped successfully")
		return nil

	default:
		return fmt.Errorf("unknown command: %s (available: up, down, force, version, drop)", command)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// migrationLogger implements migrate.Logger interface
type migrationLogger struct{}

func (l *migrationLogger) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

func (l *migrationLogger) Verbose() bool {
	return true
}
