package config

import (
	"strings"
	"time"

	"github.com/songquanpeng/contract-tester/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)
	// DebugSQLEnabled toggles per-query SQL logging when DEBUG_SQL=true.
	DebugSQLEnabled = env.Bool("DEBUG_SQL", false)

	// ServerPort overrides the --port flag when running inside container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", ""))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))
	// ShutdownTimeout bounds the graceful drain of background runs on SIGTERM.
	ShutdownTimeout = env.Duration("SHUTDOWN_TIMEOUT", 2*time.Minute)

	// UserAgent is sent with schema fetches and test requests.
	UserAgent = env.String("USER_AGENT", "API-Tester/1.0")
	// DiscoveryPath is appended to the endpoint base to locate the schema description document.
	DiscoveryPath = strings.TrimPrefix(env.String("DISCOVERY_PATH", "openapi.json"), "/")
	// SchemaFetchTimeout bounds the schema document download.
	SchemaFetchTimeout = env.Duration("SCHEMA_FETCH_TIMEOUT", 10*time.Second)
	// SchemaCacheTTL controls how long a fetched schema document is reused. Zero disables caching.
	SchemaCacheTTL = env.Duration("SCHEMA_CACHE_TTL", 5*time.Minute)
	// MaxSchemaBytes caps the schema document size.
	MaxSchemaBytes = int64(env.Int("MAX_SCHEMA_BYTES", 8<<20))

	// RequestTimeout bounds every individual test request.
	RequestTimeout = env.Duration("REQUEST_TIMEOUT", 30*time.Second)
	// MaxResponseBytes caps how much of a test response body is recorded.
	MaxResponseBytes = int64(env.Int("MAX_RESPONSE_BYTES", 1<<20))
	// MaxLoggedBodyBytes caps request/response snippets written to the log.
	MaxLoggedBodyBytes = env.Int("MAX_LOGGED_BODY_BYTES", 2048)

	// CombinationSamples is the number of random test cases synthesized per field subset.
	CombinationSamples = env.Int("COMBINATION_SAMPLES", 3)
	// CombinationMaxArity is the largest field subset size expanded by the combination pass.
	CombinationMaxArity = env.Int("COMBINATION_MAX_ARITY", 3)

	// OracleEnabled switches the rule/scenario oracle on. It is also implicitly off without an API key.
	OracleEnabled = env.Bool("ORACLE_ENABLED", true)
	// OracleAPIBase is an OpenAI-compatible API base, e.g. https://api.openai.com.
	OracleAPIBase = strings.TrimSuffix(env.String("ORACLE_API_BASE", "https://api.openai.com"), "/")
	// OracleAPIKey authenticates oracle calls.
	OracleAPIKey = env.String("ORACLE_API_KEY", env.String("OPENAI_API_KEY", ""))
	// OracleModel is the chat model asked for rules and scenarios.
	OracleModel = env.String("ORACLE_MODEL", "gpt-3.5-turbo")
	// OracleTemperature is forwarded as the sampling temperature.
	OracleTemperature = env.Float64("ORACLE_TEMPERATURE", 0.7)
	// OracleTimeout bounds a single oracle call.
	OracleTimeout = env.Duration("ORACLE_TIMEOUT", 60*time.Second)
	// OracleMaxPromptTokens trims oversized prompt context. Zero disables the budget.
	OracleMaxPromptTokens = env.Int("ORACLE_MAX_PROMPT_TOKENS", 12000)
	// OracleStructuredOutput sends a json_schema response_format with oracle prompts.
	OracleStructuredOutput = env.Bool("ORACLE_STRUCTURED_OUTPUT", false)

	// ResultsDir is where run result documents are written.
	ResultsDir = env.String("RESULTS_DIR", ".")
	// RetentionDays deletes log files and result documents older than this many days. Zero keeps everything.
	RetentionDays = env.Int("RETENTION_DAYS", 0)

	// SQLDSN selects the run store: postgres://... for PostgreSQL, any other value for MySQL, empty for SQLite.
	SQLDSN = env.String("SQL_DSN", "")
	// SQLitePath is the SQLite database file used when SQL_DSN is empty.
	SQLitePath = env.String("SQLITE_PATH", "contract-tester.db")
	// SQLiteBusyTimeout is forwarded as _busy_timeout (milliseconds).
	SQLiteBusyTimeout = env.Int("SQLITE_BUSY_TIMEOUT", 3000)
	// SQLMaxIdleConns and SQLMaxOpenConns tune the database pool.
	SQLMaxIdleConns = env.Int("SQL_MAX_IDLE_CONNS", 10)
	SQLMaxOpenConns = env.Int("SQL_MAX_OPEN_CONNS", 100)
	// MaxItemsPerPage caps paginated run listings.
	MaxItemsPerPage = env.Int("MAX_ITEMS_PER_PAGE", 100)

	// RedisConnString enables the shared schema cache when set.
	RedisConnString = env.String("REDIS_CONN_STRING", "")
	// RedisPassword and RedisMasterName configure sentinel/cluster mode.
	RedisPassword   = env.String("REDIS_PASSWORD", "")
	RedisMasterName = env.String("REDIS_MASTER_NAME", "")

	// EnablePrometheusMetrics exposes the /metrics endpoint for Prometheus scrapers when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)
	// BlockedTargetSubnets refuses API-submitted runs whose endpoint resolves into these CIDRs, comma separated.
	BlockedTargetSubnets = env.String("BLOCKED_TARGET_SUBNETS", "")
	// CORSAllowOrigins lists origins allowed to call the API, comma separated. Empty allows all.
	CORSAllowOrigins = env.String("CORS_ALLOW_ORIGINS", "")
)
