// Package constants provides shared constants for the realty-forecast application.
package constants

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyPlaces is the number of decimal places kept when rounding schedules
	CurrencyPlaces = 2

	// MaxTermMonths bounds loan terms accepted by validation (50 years)
	MaxTermMonths = 600

	// MaxHoldingYears bounds the projection horizon
	MaxHoldingYears = 100
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of configuration keys
	EnvPrefix = "REALTY"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRateLimitRequests is the number of requests a client may make per window
	DefaultRateLimitRequests = 60

	// DefaultRateLimitWindow is the refill window of the rate limiter
	DefaultRateLimitWindow = "1m"

	// DefaultCacheTTL is how long computed responses are cached
	DefaultCacheTTL = "10m"
)

// Policy defaults
const (
	// DefaultDTILimit is the debt-to-income ceiling (percent) used for affordability
	DefaultDTILimit = 30.0

	// DefaultPrepaymentMargin is the relative margin reduce-term savings must exceed
	DefaultPrepaymentMargin = 0.05

	// DefaultScenarioConcurrency bounds the number of scenarios evaluated at once
	DefaultScenarioConcurrency = 4

	// AffordabilityTolerance is the price precision of the affordability search
	AffordabilityTolerance = 1.0

	// AffordabilityMaxIterations bounds the affordability search
	AffordabilityMaxIterations = 200
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
