package cmd

import (
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/execution"
)

// NewExecutor returns an HTTP executor for executorURL, or the mock executor when the URL is
// empty or "mock".
//
// nolint:ireturn // callers only need the interface
func NewExecutor(executorURL string, timeout time.Duration, logger *slog.Logger) execution.Executor {
	if executorURL == "" || executorURL == "mock" {
		logger.Info("Using mock executor")

		return execution.NewMockExecutor()
	}

	return execution.NewHTTPExecutor(executorURL, logger, execution.WithTimeout(timeout))
}
