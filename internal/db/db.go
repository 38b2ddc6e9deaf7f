package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// NewDB открывает соединение с Postgres и накатывает миграции из
// migrationsDir. Схема всегда доводится до актуальной ревизии до того, как
// репозитории начнут работать.
func NewDB(dsn, migrationsDir string) (*sql.DB, error) {
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := goose.Up(database, migrationsDir); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return database, nil
}
