// Package main is the entry point for the gitter CLI application.
// gitter inspects git repositories by running the git executable and
// parsing its output into a cached object model.
package main

import (
	"io"
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/MyCarrier-DevOps/gitter/cmd"
	"github.com/MyCarrier-DevOps/gitter/internal/adapters/git"
	"github.com/MyCarrier-DevOps/gitter/internal/adapters/gitcli"
	logadapter "github.com/MyCarrier-DevOps/gitter/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/gitter/internal/adapters/output"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
	"github.com/MyCarrier-DevOps/gitter/internal/infrastructure/config"
)

func main() {
	deps := &cmd.Dependencies{
		// The logger is created lazily so that -v can raise LOG_LEVEL first.
		LoggerFactory: func() cmd.Logger {
			return logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
		},

		ConfigLoader: loadConfig,

		LocatorFactory: func(log cmd.Logger) cmd.Locator {
			return git.NewLocator(log)
		},

		AccessorFactory: func(cfg *cmd.AppConfig, dir string, log cmd.Logger) (domain.RepositoryAccessor, error) {
			acc, err := newAccessor(cfg, dir, componentLogger(log, "gitcli"))
			if err != nil {
				return nil, err
			}
			return acc, nil
		},

		OutputWriterFactory: newOutputWriter,

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// loadConfig maps the file and environment configuration onto cmd.AppConfig.
func loadConfig() (*cmd.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &cmd.AppConfig{
		GitPath:        cfg.GitPath,
		Encoding:       cfg.Encoding,
		CommandTimeout: cfg.CommandTimeout,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
		LogAppName:     cfg.LogAppName,
	}, nil
}

// newAccessor builds a git accessor running in dir.
func newAccessor(cfg *cmd.AppConfig, dir string, log gitcli.Logger) (*gitcli.Accessor, error) {
	enc, err := gitcli.ResolveEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return gitcli.NewAccessor(gitcli.Options{
		GitPath:          cfg.GitPath,
		WorkingDirectory: dir,
		Encoding:         enc,
		Environment:      cfg.Environment,
		Timeout:          cfg.CommandTimeout,
		Logger:           log,
	}), nil
}

func newOutputWriter(w io.Writer, format string) (cmd.OutputWriter, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewWriterWithOutput(w, f), nil
}

// componentLogger tags entries with the component name when log is the
// application adapter.
func componentLogger(log cmd.Logger, name string) cmd.Logger {
	if a, ok := log.(*logadapter.ZapAdapter); ok {
		return a.Component(name)
	}
	return log
}
