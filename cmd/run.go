package cmd

import (
	"context"
	"fmt"
	"maps"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/batchfile"
	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/observability"
	"github.com/xkilldash9x/handbridge/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultDriver = "default"

type runOptions struct {
	driver  string
	timeout time.Duration
	vars    map[string]string
}

// newRunCmd creates the `run` command, which executes a batch file on a fresh
// engine session and prints the response as JSON.
func newRunCmd(factory service.ComponentFactory) *cobra.Command {
	opts := &runOptions{}
	runCmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Execute a batch of actions on a new engine session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			f, err := batchfile.Load(args[0])
			if err != nil {
				return err
			}

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			resp, err := runBatch(ctx, components, cfg, f, opts, logger)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if resp.Status != schemas.StatusSuccess {
				return fmt.Errorf("batch finished with status %s", resp.Status)
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&opts.driver, "driver", "d", "", "driver to open the session on (overrides the batch file)")
	runCmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "response timeout (overrides the batch file)")
	runCmd.Flags().StringToStringVar(&opts.vars, "var", nil, "script variable as key=value; may be repeated")
	return runCmd
}

func runBatch(ctx context.Context, components *service.Components, cfg *config.Config, f *batchfile.File, opts *runOptions, logger *zap.Logger) (*schemas.BatchResponse, error) {
	driver, err := pickDriver(cfg, opts.driver, f.Driver)
	if err != nil {
		return nil, err
	}

	sessionID, err := components.Executor.CreateSession(ctx, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", driver, err)
	}
	defer func() {
		// The command context may already be cancelled here.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := components.Executor.CloseSession(closeCtx, sessionID); err != nil {
			logger.Warn("Failed to close session.", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	req, err := f.Request(sessionID)
	if err != nil {
		return nil, err
	}
	if len(opts.vars) > 0 {
		if req.Variables == nil {
			req.Variables = make(map[string]string, len(opts.vars))
		}
		maps.Copy(req.Variables, opts.vars)
	}
	if opts.timeout > 0 {
		req.Timeout = opts.timeout
	}

	logger.Info("Executing batch.",
		zap.String("file", f.SourcePath),
		zap.String("driver", driver),
		zap.Int("actions", len(req.Actions)),
	)
	return components.Executor.ExecuteBatch(ctx, req), nil
}

// pickDriver prefers the flag, then the batch file, then the only configured
// driver, then the one named "default".
func pickDriver(cfg *config.Config, flag, fromFile string) (string, error) {
	switch {
	case flag != "":
		return flag, nil
	case fromFile != "":
		return fromFile, nil
	}
	names := cfg.DriverNames()
	if len(names) == 1 {
		return names[0], nil
	}
	if _, ok := cfg.Drivers[defaultDriver]; ok {
		return defaultDriver, nil
	}
	return "", fmt.Errorf("no driver selected; use --driver with one of %v", names)
}
