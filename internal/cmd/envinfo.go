package cmd

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamrand/streamrand/internal/config"
	"github.com/streamrand/streamrand/internal/observability"
)

// envRow is one labelled value; field, when set, also attaches the value
// as a structured log field.
type envRow struct {
	label string
	value string
	field string
}

type envSection struct {
	title string
	rows  []envRow
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime, configuration, entropy and access settings.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("=== streamrand Environment Information ===")
		logger.Info("")

		sections := []envSection{buildSection(), runtimeSection()}
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			logSections(sections)
			logger.Warn("Config load failed", zap.Error(err))
			return
		}
		sections = append(sections, configSection(cfg), entropySection(cfg), accessSection(cfg))
		logSections(sections)

		logger.Info("=== End Environment Information ===")
	},
}

func logSections(sections []envSection) {
	logger := observability.CLILogger
	for _, section := range sections {
		logger.Info(section.title + ":")
		for _, row := range section.rows {
			line := fmt.Sprintf("  %-15s %s", row.label+":", row.value)
			if row.field == "" {
				logger.Info(line)
				continue
			}
			logger.Info(line, zap.String(row.field, row.value))
		}
		logger.Info("")
	}
}

func buildSection() envSection {
	ssot := crucible.GetVersion()
	return envSection{title: "Application", rows: []envRow{
		{label: "Name", value: GetAppIdentity().BinaryName},
		{label: "Version", value: versionInfo.Version, field: "version"},
		{label: "Commit", value: versionInfo.Commit},
		{label: "Built", value: versionInfo.BuildDate},
		{label: "Gofulmen", value: ssot.Gofulmen, field: "gofulmen_version"},
		{label: "Crucible", value: ssot.Crucible, field: "crucible_version"},
	}}
}

func runtimeSection() envSection {
	return envSection{title: "Runtime", rows: []envRow{
		{label: "Go Version", value: runtime.Version(), field: "go_version"},
		{label: "GOOS", value: runtime.GOOS, field: "goos"},
		{label: "GOARCH", value: runtime.GOARCH, field: "goarch"},
		{label: "NumCPU", value: strconv.Itoa(runtime.NumCPU()), field: "num_cpu"},
	}}
}

func configSection(cfg *config.Config) envSection {
	rows := []envRow{
		{label: "Server", value: cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port), field: "listen"},
		{label: "Log Level", value: cfg.Logging.Level, field: "log_level"},
		{label: "Log Profile", value: cfg.Logging.Profile, field: "log_profile"},
		{label: "DB Driver", value: cfg.Store.Driver, field: "db_driver"},
	}
	if strings.TrimSpace(cfg.Store.URL) != "" {
		rows = append(rows, envRow{label: "DB URL", value: redactedURL(cfg.Store.URL), field: "db_url"})
	} else {
		rows = append(rows, envRow{label: "DB Path", value: cfg.Store.Path, field: "db_path"})
	}
	rows = append(rows,
		envRow{label: "Metrics Port", value: strconv.Itoa(cfg.Metrics.Port), field: "metrics_port"},
		envRow{label: "Config File", value: config.DefaultConfigPath(), field: "config_file"},
	)
	return envSection{title: "Configuration", rows: rows}
}

func entropySection(cfg *config.Config) envSection {
	rows := make([]envRow, 0, len(cfg.Entropy.Sources)+1)
	if len(cfg.Entropy.Sources) == 0 {
		rows = append(rows, envRow{label: "Sources", value: "(none configured)"})
	}
	for _, path := range cfg.Entropy.Sources {
		rows = append(rows, envRow{label: "Source File", value: path, field: "source_file"})
	}
	rows = append(rows, envRow{label: "Fetch Timeout", value: cfg.Entropy.FetchTimeout.String(), field: "fetch_timeout"})
	return envSection{title: "Entropy", rows: rows}
}

func accessSection(cfg *config.Config) envSection {
	limiter := cfg.Access.Limiter
	rows := []envRow{
		{label: "Key Header", value: cfg.Access.APIKeyHeader, field: "api_key_header"},
		{label: "Key Pepper", value: setOrNot(cfg.Access.KeyPepper)},
		{label: "Trust Proxy", value: strconv.FormatBool(cfg.Access.TrustProxyHeaders), field: "trust_proxy_headers"},
		{label: "Limiter", value: limiter.Backend, field: "limiter_backend"},
		{label: "Window", value: cfg.LimiterWindow().String(), field: "limiter_window"},
	}
	if limiter.Backend == config.LimiterRedis {
		rows = append(rows, envRow{label: "Redis URL", value: setOrNot(limiter.Redis.URL)})
	}
	return envSection{title: "Access", rows: rows}
}

func setOrNot(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "(not set)"
	}
	return "(set)"
}

// redactedURL drops the query, which may carry an auth token.
func redactedURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
