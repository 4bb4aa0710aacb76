package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/jarpatch"
	"github.com/meigma/jarpatch/internal/config"
)

const usage = `Usage: jarpatch <input-jar> <output-jar> [class-to-modify]
Or: jarpatch <input-jar> -dShowClasses
`

// legacyShowClasses is the single-dash spelling of --show-classes.
const legacyShowClasses = "-dShowClasses"

var version = "dev"

type flags struct {
	configPath  string
	verbose     bool
	jsonOut     bool
	showClasses bool
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(rewriteLegacyArgs(args))

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, jarpatch.ErrUsage):
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// rewriteLegacyArgs maps -dShowClasses to --show-classes so the flag parser
// accepts it.
func rewriteLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == legacyShowClasses {
			a = "--show-classes"
		}
		out[i] = a
	}
	return out
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "jarpatch <input-jar> <output-jar> [class-to-modify]",
		Short: "Inject a diagnostic println into a class inside a jar",
		Long: `jarpatch patches one class of a jar without its source. The class is
named on the command line or taken from the manifest Main-Class attribute.

If the class declares no main method, one printing "Main method added" is
added. A println is then inserted at the start of init, or of main when the
class declares no init. Every other entry is copied unchanged.

Example:
  jarpatch app.jar app-patched.jar
  jarpatch app.jar app-patched.jar com.example.Service
  jarpatch app.jar -dShowClasses`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if f.showClasses {
				if len(args) != 1 {
					return jarpatch.ErrUsage
				}
				return nil
			}
			if len(args) < 2 || len(args) > 3 {
				return jarpatch.ErrUsage
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), f, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", jarpatch.ErrUsage, err)
	})

	cmd.Flags().BoolVar(&f.showClasses, "show-classes", false, "List classes and their declared methods instead of patching")
	cmd.Flags().StringVar(&f.configPath, "config", config.DefaultPath, "Configuration file")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the patch report as JSON")
	return cmd
}

func execute(ctx context.Context, f *flags, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, f.verbose, stderr)
	if err != nil {
		return err
	}
	opts := []jarpatch.Option{
		jarpatch.WithLogger(logger),
		jarpatch.WithWorkDir(cfg.WorkDir),
		jarpatch.WithMaxEntrySize(cfg.MaxEntrySize),
		jarpatch.WithCompression(jarpatch.Compression(cfg.Output.Compression)),
		jarpatch.WithCompressionLevel(cfg.Output.Level),
		jarpatch.WithVerify(cfg.Verify),
	}

	if f.showClasses {
		return jarpatch.ListClasses(ctx, args[0], stdout, opts...)
	}

	var className string
	if len(args) == 3 {
		className = args[2]
	}
	report, err := jarpatch.PatchArchive(ctx, args[0], args[1], className, opts...)
	if err != nil {
		return err
	}
	if f.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(stdout, "Patched %s (%s) -> %s\n", report.Class, report.Target, args[1])
	return nil
}

func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
