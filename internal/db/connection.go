package db

import (
	"fmt"

	"github.com/d66d666/SchMang-sub000/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DriverName maps the configured database flavour to a registered database/sql driver.
func DriverName(flavour string) string {
	if flavour == "mysql" {
		return "mysql"
	}
	return "pgx"
}

func NewConnection(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName(cfg.Database.Driver), cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(cfg.Database.ConnectionLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
