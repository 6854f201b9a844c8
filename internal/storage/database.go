package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"cortexchat/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database selected by dbType.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS cortex_chat_messages (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				thread_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				channel_context TEXT,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cortex_chat_thread ON cortex_chat_messages(thread_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_cortex_chat_created ON cortex_chat_messages(created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS channel_timeline (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				channel_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				role TEXT,
				content TEXT,
				sender_name TEXT,
				description TEXT,
				conclusion TEXT,
				task TEXT,
				result TEXT,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_channel_timeline_channel ON channel_timeline(channel_id, created_at)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS cortex_chat_messages (
				seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				id VARCHAR(36) NOT NULL,
				thread_id VARCHAR(36) NOT NULL,
				role VARCHAR(50) NOT NULL,
				content MEDIUMTEXT NOT NULL,
				channel_context VARCHAR(255),
				created_at DATETIME NOT NULL,
				PRIMARY KEY (seq),
				UNIQUE KEY uniq_cortex_chat_id (id),
				INDEX idx_cortex_chat_thread (thread_id, created_at),
				INDEX idx_cortex_chat_created (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS channel_timeline (
				seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				channel_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL,
				role VARCHAR(50),
				content MEDIUMTEXT,
				sender_name VARCHAR(255),
				description TEXT,
				conclusion MEDIUMTEXT,
				task TEXT,
				result MEDIUMTEXT,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (seq),
				INDEX idx_channel_timeline_channel (channel_id, created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
