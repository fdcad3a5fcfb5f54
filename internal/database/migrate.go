package database

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/sirupsen/logrus"
)

// migration is one ordered schema step.  Statements run one by one;
// MySQL DDL commits implicitly, so each step must be written to be
// safe if re-applied after a mid-step crash.
type migration struct {
    version int
    name    string
    stmts   []string
}

var migrations = []migration{
    {
        version: 1,
        name:    "core schema",
        stmts: []string{
            `CREATE TABLE IF NOT EXISTS users (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                name VARCHAR(191) NOT NULL,
                email VARCHAR(191) NOT NULL UNIQUE,
                password VARCHAR(255) NOT NULL,
                role VARCHAR(32) NOT NULL DEFAULT 'STUDENT',
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS console_type (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                name VARCHAR(191) NOT NULL UNIQUE,
                description TEXT NULL
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS console_stock (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                console_type_id BIGINT UNSIGNED NOT NULL,
                name VARCHAR(191) NOT NULL,
                is_active TINYINT(1) NOT NULL DEFAULT 1,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                CONSTRAINT fk_stock_type FOREIGN KEY (console_type_id) REFERENCES console_type(id)
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS games (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                titre VARCHAR(191) NOT NULL,
                console_type_id BIGINT UNSIGNED NULL,
                holding TINYINT(1) NOT NULL DEFAULT 0,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                CONSTRAINT fk_games_type FOREIGN KEY (console_type_id) REFERENCES console_type(id)
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS stations (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS accessoires (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                name VARCHAR(191) NOT NULL,
                hidden TINYINT(1) NOT NULL DEFAULT 0
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS cours (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                code_cours VARCHAR(32) NOT NULL,
                nom_cours VARCHAR(191) NOT NULL
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS reservation_hold (
                id VARCHAR(36) PRIMARY KEY,
                user_id BIGINT UNSIGNED NOT NULL,
                console_id BIGINT UNSIGNED NULL,
                console_type_id BIGINT UNSIGNED NOT NULL,
                game1_id BIGINT UNSIGNED NULL,
                game2_id BIGINT UNSIGNED NULL,
                game3_id BIGINT UNSIGNED NULL,
                station_id BIGINT UNSIGNED NULL,
                accessoirs JSON NULL,
                cours BIGINT UNSIGNED NULL,
                date DATE NULL,
                time TIME NULL,
                expireAt DATETIME NOT NULL,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                INDEX idx_hold_expire (expireAt),
                INDEX idx_hold_type (console_type_id),
                CONSTRAINT fk_hold_user FOREIGN KEY (user_id) REFERENCES users(id),
                CONSTRAINT fk_hold_type FOREIGN KEY (console_type_id) REFERENCES console_type(id),
                CONSTRAINT fk_hold_console FOREIGN KEY (console_id) REFERENCES console_stock(id)
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS reservation (
                id VARCHAR(36) PRIMARY KEY,
                user_id BIGINT UNSIGNED NOT NULL,
                console_id BIGINT UNSIGNED NOT NULL,
                console_type_id BIGINT UNSIGNED NOT NULL,
                game1_id BIGINT UNSIGNED NULL,
                game2_id BIGINT UNSIGNED NULL,
                game3_id BIGINT UNSIGNED NULL,
                accessory_ids JSON NULL,
                cours_id BIGINT UNSIGNED NOT NULL,
                station BIGINT UNSIGNED NULL,
                date DATE NOT NULL,
                time TIME NOT NULL,
                archived TINYINT(1) NOT NULL DEFAULT 0,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                lastUpdatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                INDEX idx_resa_date (date, time),
                CONSTRAINT fk_resa_user FOREIGN KEY (user_id) REFERENCES users(id),
                CONSTRAINT fk_resa_console FOREIGN KEY (console_id) REFERENCES console_stock(id),
                CONSTRAINT fk_resa_type FOREIGN KEY (console_type_id) REFERENCES console_type(id),
                CONSTRAINT fk_resa_cours FOREIGN KEY (cours_id) REFERENCES cours(id),
                CONSTRAINT fk_resa_station FOREIGN KEY (station) REFERENCES stations(id)
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS weekly_availabilities (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                day_of_week VARCHAR(16) NOT NULL,
                start_date DATE NULL,
                end_date DATE NULL,
                enabled TINYINT(1) NOT NULL DEFAULT 1,
                always_available TINYINT(1) NOT NULL DEFAULT 0
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS hour_ranges (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                weekly_availability_id BIGINT UNSIGNED NOT NULL,
                start_hour VARCHAR(2) NOT NULL,
                start_minute VARCHAR(2) NOT NULL,
                end_hour VARCHAR(2) NOT NULL,
                end_minute VARCHAR(2) NOT NULL,
                CONSTRAINT fk_ranges_weekly FOREIGN KEY (weekly_availability_id)
                    REFERENCES weekly_availabilities(id) ON DELETE CASCADE
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

            `CREATE TABLE IF NOT EXISTS specific_dates (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                date DATE NOT NULL,
                start_hour VARCHAR(2) NOT NULL,
                start_minute VARCHAR(2) NOT NULL,
                end_hour VARCHAR(2) NOT NULL,
                end_minute VARCHAR(2) NOT NULL,
                is_exception TINYINT(1) NOT NULL DEFAULT 0
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
        },
    },
    {
        version: 2,
        name:    "reminders and slot uniqueness",
        stmts: []string{
            `ALTER TABLE reservation
                ADD COLUMN reminder_enabled TINYINT(1) NOT NULL DEFAULT 0,
                ADD COLUMN reminder_hours_before INT NULL,
                ADD COLUMN reminder_sent TINYINT(1) NOT NULL DEFAULT 0,
                ADD COLUMN reminder_sent_at DATETIME NULL`,

            `CREATE INDEX idx_reminder_pending
                ON reservation (reminder_enabled, reminder_sent, archived, date, time)`,

            // console_key is NULL for archived rows; NULLs never collide
            // in a MySQL unique index, so archived reservations free the
            // slot while staying on record.
            `ALTER TABLE reservation
                ADD COLUMN console_key BIGINT UNSIGNED
                    GENERATED ALWAYS AS (IF(archived, NULL, console_id)) STORED`,

            `CREATE UNIQUE INDEX uq_active_console_slot
                ON reservation (console_key, date, time)`,

            `CREATE TABLE IF NOT EXISTS email_logs (
                id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
                reservation_id VARCHAR(36) NOT NULL,
                email_type VARCHAR(32) NOT NULL,
                recipient VARCHAR(191) NOT NULL,
                status VARCHAR(16) NOT NULL,
                error_message TEXT NULL,
                createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                INDEX idx_email_resa (reservation_id)
            ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
        },
    },
    {
        version: 3,
        name:    "station slot uniqueness",
        stmts: []string{
            // Same pattern as console_key: stations are shared across
            // console types, so the slot index must not depend on the
            // console column at all.  NULL station rows never collide.
            `ALTER TABLE reservation
                ADD COLUMN station_key BIGINT UNSIGNED
                    GENERATED ALWAYS AS (IF(archived, NULL, station)) STORED`,

            `CREATE UNIQUE INDEX uq_active_station_slot
                ON reservation (station_key, date, time)`,
        },
    },
}

const migrateLock = "ludov_reservation_migrate"

// Migrate applies the pending schema steps in order.  A named MySQL
// advisory lock keeps concurrent instances from racing each other on
// startup; the schema_migrations table records what has been applied.
func Migrate(ctx context.Context, db *sql.DB, log *logrus.Logger) error {
    if log == nil {
        log = logrus.StandardLogger()
    }

    var locked int
    if err := db.QueryRowContext(ctx, `SELECT GET_LOCK(?, 30)`, migrateLock).Scan(&locked); err != nil {
        return fmt.Errorf("migrate: acquire lock: %w", err)
    }
    if locked != 1 {
        return fmt.Errorf("migrate: lock %q held elsewhere", migrateLock)
    }
    defer db.ExecContext(ctx, `SELECT RELEASE_LOCK(?)`, migrateLock)

    _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT PRIMARY KEY,
        name VARCHAR(191) NOT NULL,
        appliedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    ) ENGINE=InnoDB`)
    if err != nil {
        return fmt.Errorf("migrate: ensure version table: %w", err)
    }

    var current int
    if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
        return fmt.Errorf("migrate: read version: %w", err)
    }

    for _, m := range migrations {
        if m.version <= current {
            continue
        }
        log.WithField("version", m.version).Infof("migrate: applying %s", m.name)
        for _, stmt := range m.stmts {
            if _, err := db.ExecContext(ctx, stmt); err != nil {
                return fmt.Errorf("migrate: v%d %s: %w", m.version, m.name, err)
            }
        }
        if _, err := db.ExecContext(ctx,
            `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
            return fmt.Errorf("migrate: record v%d: %w", m.version, err)
        }
    }
    return nil
}
