package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	apperrors "github.com/streamrand/streamrand/internal/errors"
)

// ExitWithCode logs msg and err with the foundry exit code metadata and exits.
// A nil logger writes the report to stderr instead.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	code := int(exitCode)
	info, known := foundry.GetExitCodeInfo(exitCode)
	if known {
		code = info.Code
	}

	if logger == nil {
		writeExitReport(os.Stderr, msg, err)
		if known {
			fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		} else {
			fmt.Fprintf(os.Stderr, "Exit Code: %d\n", code)
		}
		os.Exit(code)
	}

	fields := []zap.Field{zap.Int("exit_code", code)}
	if known {
		fields = append(fields,
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category))
	}
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID))
		if len(envelope.Context) > 0 {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
	os.Exit(code)
}

// ExitWithCodeStderr is ExitWithCode for failures before any logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

// ExitCodeFor picks the process exit code for an error returned by a command.
func ExitCodeFor(err error) foundry.ExitCode {
	var envelope *errors.ErrorEnvelope
	if !stderrors.As(err, &envelope) {
		return foundry.ExitFailure
	}
	switch envelope.Code {
	case apperrors.CodeConfigInvalid, apperrors.CodeInvalidInput:
		return foundry.ExitConfigInvalid
	case apperrors.CodeDatabase, apperrors.CodeExternalService, apperrors.CodeServiceUnavailable:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func writeExitReport(w io.Writer, msg string, err error) {
	var envelope *errors.ErrorEnvelope
	switch {
	case err == nil:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	case stderrors.As(err, &envelope):
		fmt.Fprintf(w, "FATAL: %s [%s]: %s", msg, envelope.Code, envelope.Message)
		if envelope.CorrelationID != "" {
			fmt.Fprintf(w, " (correlation: %s)", envelope.CorrelationID)
		}
		fmt.Fprintln(w)
		if cause, ok := envelope.Context["wrapped_error"]; ok {
			fmt.Fprintf(w, "Cause: %v\n", cause)
		}
	default:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}
}
