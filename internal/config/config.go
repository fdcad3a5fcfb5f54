package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers, durations for the booking
// timers.
type Config struct {
    Env              string        // application environment (e.g. "dev", "prod")
    Port             string        // HTTP port to listen on
    DBUser           string        // database username
    DBPass           string        // database password (optional)
    DBHost           string        // database host address
    DBPort           string        // database port number
    DBName           string        // database name
    HoldTTL          time.Duration // lifetime of a new hold
    SlotLength       time.Duration // implicit duration of a reservation slot
    SweepInterval    time.Duration // period of the expired-hold sweep
    ReminderInterval time.Duration // period of the reminder scan
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The timers have
// sensible defaults so a minimal .env still boots.
func Load() Config {
    return Config{
        Env:              must("APP_ENV"),      // environment (dev/test/prod)
        Port:             must("APP_PORT"),     // port to bind the HTTP server
        DBUser:           must("DB_USER"),      // database user
        DBPass:           os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:           must("DB_HOST"),      // database host
        DBPort:           must("DB_PORT"),      // database port
        DBName:           must("DB_NAME"),      // database name
        HoldTTL:          minutes("HOLD_TTL_MIN", 15),
        SlotLength:       minutes("SLOT_MINUTES", 60),
        SweepInterval:    minutes("SWEEP_INTERVAL_MIN", 1),
        ReminderInterval: minutes("REMINDER_INTERVAL_MIN", 5),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// minutes reads an optional integer env var expressed in minutes and
// falls back to the given default.  A zero or negative value is a
// configuration mistake and also falls back.
func minutes(key string, def int) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return time.Duration(def) * time.Minute
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, v)
    }
    if n <= 0 {
        return time.Duration(def) * time.Minute
    }
    return time.Duration(n) * time.Minute
}
