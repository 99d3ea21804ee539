package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations,
// floats for scoring constants.
type Config struct {
    Env            string  // application environment (e.g. "dev", "prod")
    Port           string  // HTTP port to listen on
    DBUser         string  // database username
    DBPass         string  // database password (optional)
    DBHost         string  // database host address
    DBPort         string  // database port number
    DBName         string  // database name
    JWTSecret      string  // secret used to sign operator JWTs
    AccessTTLMin   int     // operator token time‑to‑live in minutes
    AdminUser      string  // operator login name
    AdminPassHash  string  // bcrypt hash of the operator password
    BcryptCost     int     // bcrypt cost for hashing new operator passwords

    FormulaVersion string  // scoring formula version ("v1" or "v2")
    WeightMode     string  // weight publishing mode ("raw", "normalized", "capped")
    WeightPerPoint float64 // weight units awarded per net point
    WindowHours    int     // rolling scoring window in hours
    SyncIntervalMin  int   // minutes between scheduled syncs per scope
    ScoreIntervalMin int   // minutes between scoring runs (0 disables the scheduler)
    EpochLengthMin   int   // minutes per epoch number; replay granularity, not cadence

    ObserverID string   // this node's observer id in multi-observer deployments
    Observers  []string // expected observer set; empty means single-observer mode
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Scoring knobs are
// optional and fall back to the canonical values.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),             // environment (dev/test/prod)
        Port:           must("APP_PORT"),            // port to bind the HTTP server
        DBUser:         must("DB_USER"),             // database user
        DBPass:         os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:         must("DB_HOST"),             // database host
        DBPort:         must("DB_PORT"),             // database port
        DBName:         must("DB_NAME"),             // database name
        JWTSecret:      must("JWT_SECRET"),          // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for operator tokens in minutes
        AdminUser:      must("ADMIN_USER"),          // operator login
        AdminPassHash:  must("ADMIN_PASS_HASH"),     // bcrypt hash, never the plain password
        BcryptCost:     mustInt("BCRYPT_COST"),      // bcrypt cost factor

        FormulaVersion: envStr("FORMULA_VERSION", "v2"),
        WeightMode:     envStr("WEIGHT_MODE", "normalized"),
        WeightPerPoint: envFloat("WEIGHT_PER_POINT", 0.02),
        WindowHours:    envInt("SCORING_WINDOW_HOURS", 24),
        SyncIntervalMin:  envInt("SYNC_INTERVAL_MIN", 5),
        ScoreIntervalMin: envInt("SCORE_INTERVAL_MIN", 60),
        // Epoch length follows the scoring cadence unless pinned; pinning it
        // keeps epoch numbers stable across scheduler retuning.
        EpochLengthMin:   envInt("EPOCH_LENGTH_MIN", envInt("SCORE_INTERVAL_MIN", 60)),

        ObserverID: os.Getenv("OBSERVER_ID"),
        Observers:  splitList(os.Getenv("OBSERVERS")),
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// envFloat reads an optional float variable.  A malformed value is fatal
// rather than silently defaulted: a typo in a scoring knob must not
// change published weights.
func envFloat(key string, def float64) float64 {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    f, err := strconv.ParseFloat(s, 64)
    if err != nil {
        log.Fatalf("invalid float for %s: %q", key, s)
    }
    return f
}

// splitList parses a comma-separated list, trimming blanks.
func splitList(s string) []string {
    if s == "" {
        return nil
    }
    var out []string
    for _, part := range strings.Split(s, ",") {
        if p := strings.TrimSpace(part); p != "" {
            out = append(out, p)
        }
    }
    return out
}
