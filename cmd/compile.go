package cmd

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/handbridge/internal/batchfile"
	"github.com/xkilldash9x/handbridge/internal/observability"
	"github.com/xkilldash9x/handbridge/internal/script"
	"github.com/xkilldash9x/handbridge/internal/serializer"
)

type compileOptions struct {
	templatesDir string
	vars         map[string]string
	raw          bool
}

// newCompileCmd creates the `compile` command. It renders a script file, or
// the actions of a batch file, exactly as it would be sent to the engine.
func newCompileCmd() *cobra.Command {
	opts := &compileOptions{}
	compileCmd := &cobra.Command{
		Use:   "compile <script.csv|batch.yaml>",
		Short: "Expand templates and variables without contacting an engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			dir := cfg.Script.TemplatesDir
			if opts.templatesDir != "" {
				dir = opts.templatesDir
			}
			loader := script.NewTemplateLoader(dir, logger)

			vars := maps.Clone(cfg.Script.Variables)
			if vars == nil {
				vars = make(map[string]string)
			}

			var text string
			if isBatchFile(args[0]) {
				f, err := batchfile.Load(args[0])
				if err != nil {
					return err
				}
				req, err := f.Request("")
				if err != nil {
					return err
				}
				maps.Copy(vars, req.Variables)
				if text, err = loader.Expand(serializer.New(logger).Serialize(req.Actions).String()); err != nil {
					return err
				}
			} else if text, err = loader.LoadWithTemplates(args[0]); err != nil {
				return err
			}

			maps.Copy(vars, opts.vars)
			if len(vars) > 0 {
				if text, err = script.Compile(text, vars); err != nil {
					return err
				}
			}

			if !opts.raw {
				text = strings.ReplaceAll(text, script.LineSeparator, "\n")
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	compileCmd.Flags().StringVar(&opts.templatesDir, "templates-dir", "", "directory templates are resolved in (overrides script.templates_dir)")
	compileCmd.Flags().StringToStringVar(&opts.vars, "var", nil, "script variable as key=value; may be repeated")
	compileCmd.Flags().BoolVar(&opts.raw, "raw", false, "keep the engine line separator instead of newlines")
	return compileCmd
}

func isBatchFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
