package config

// this holds the resolved configuration values from CLI
var (
	Year        int    // season year of the session to process
	GrandPrix   string // grand prix / location name
	Session     string // session identifier (R, Q, ...)
	APIBaseURL  string // base URL of the timing data API
	CacheFile   string // path to the sqlite response cache ("" disables caching)
	RequestRate float64
	SampleStep  float64 // resample step in seconds for position data
	ServerAddr  string  // listen addr for the HTTP server
	StaticDir   string  // directory with frontend assets
	OutputDir   string  // target directory for generated artifacts
	LogLevel    string  // sets the log level (zap log level values)
	LogFormat   string  // text vs json
	LogFilter   string  // zapfilter rules for named loggers
)
