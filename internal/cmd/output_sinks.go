package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streamrand/streamrand/internal/output"
)

// reportTarget is where and how a command's report is written. An empty
// path means stdout.
type reportTarget struct {
	format output.Format
	path   string
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// addOutputFlags registers the flags resolveReportTarget reads.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory")
}

// resolveReportTarget reads the output flags. With --out-dir the file is
// named after name plus the format's extension.
func resolveReportTarget(cmd *cobra.Command, name string) (reportTarget, error) {
	flags := cmd.Flags()
	value, err := flags.GetString("output-format")
	if err != nil {
		return reportTarget{}, err
	}
	format, err := output.ParseFormat(value)
	if err != nil {
		return reportTarget{}, err
	}

	outPath, _ := flags.GetString("out")
	outDir, _ := flags.GetString("out-dir")
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return reportTarget{}, errors.New("--out and --out-dir are mutually exclusive")
	case outDir != "":
		if abs, err := filepath.Abs(outDir); err == nil {
			outDir = abs
		}
		outPath = filepath.Join(outDir, sanitizeFilename(name)+"."+outputExtension(format))
	case outPath == "-":
		outPath = ""
	}
	return reportTarget{format: format, path: outPath}, nil
}

// open returns the writer for the target and a func that closes it.
func (t reportTarget) open() (io.Writer, func() error, error) {
	if t.path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	// #nosec G301 -- report directories are user-chosen
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(t.path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// writeReport renders through the --output-format formatter into the
// --out/--out-dir sink.
func writeReport(cmd *cobra.Command, name string, render func(output.Formatter) (string, error)) error {
	target, err := resolveReportTarget(cmd, name)
	if err != nil {
		return err
	}

	rendered, err := render(output.NewFormatter(target.format))
	if err != nil {
		return err
	}

	w, closeFn, err := target.open()
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	_, err = fmt.Fprintln(w, rendered)
	return err
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	if clean = strings.Trim(clean, "-."); clean == "" {
		return "output"
	}
	return clean
}
