package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/streamrand/streamrand/internal/config"
)

var (
	// CLILogger is used by one-shot commands (SIMPLE profile).
	CLILogger *logging.Logger

	// ServerLogger is used by the HTTP server and its background workers.
	ServerLogger *logging.Logger
)

// InitCLILogger initializes the CLI logger; verbose lowers the level to DEBUG.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger initializes ServerLogger from the logging section of the config.
func InitServerLogger(serviceName string, cfg config.LoggingConfig, namespace string) {
	logger, err := logging.New(ServerLoggerConfig(serviceName, cfg, namespace))
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// ServerLoggerConfig builds the gofulmen logger config for the server. The
// structured profile writes JSON with request correlation; simple writes
// human-readable console lines.
func ServerLoggerConfig(serviceName string, cfg config.LoggingConfig, namespace string) *logging.LoggerConfig {
	static := map[string]any{}
	if namespace != "" {
		static["namespace"] = namespace
	}

	lc := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: severity(cfg.Level),
		Service:      serviceName,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}

	if strings.EqualFold(cfg.Profile, "simple") {
		lc.Profile = logging.ProfileSimple
		lc.Middleware = nil
		lc.Sinks[0].Format = "console"
		lc.EnableStacktrace = false
	}
	return lc
}

// severity maps config level names onto gofulmen severities. Unknown names log at INFO.
func severity(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// fatal reports a logger setup failure on stderr, since no logger exists yet,
// and exits with the foundry code.
func fatal(code foundry.ExitCode, msg string, err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
