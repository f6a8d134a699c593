package cli

import (
	"context"
	"errors"
	"os"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/core/service"
)

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{Format: format, Writer: os.Stdout, ErrWriter: os.Stderr}
	_ = out.Error(errorCode(err), err.Error())
	return GetExitCode(err)
}

// errorCode names the kind of failure for structured output.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, service.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, service.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, service.ErrNoAddress):
		return "no_address"
	}

	switch status.Code(err) {
	case codes.Unauthenticated:
		return "not_authenticated"
	case codes.PermissionDenied:
		return "forbidden"
	case codes.InvalidArgument:
		return "invalid_input"
	case codes.NotFound:
		return "not_found"
	case codes.Unavailable, codes.DeadlineExceeded:
		return "unavailable"
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		return "usage"
	}
	return "failed"
}
