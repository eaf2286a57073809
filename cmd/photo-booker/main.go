package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/quidome/photo-booker-go/pkg/config"
	"github.com/quidome/photo-booker-go/pkg/createdat"
	"github.com/quidome/photo-booker-go/pkg/failure"
	"github.com/quidome/photo-booker-go/pkg/order"
	"github.com/quidome/photo-booker-go/pkg/pipeline"
	"github.com/quidome/photo-booker-go/pkg/scan"
)

const version = "0.1.0"

type options struct {
	cfgFile string
}

// flagKeys maps config keys to the flag names bound to them.
var flagKeys = map[string]string{
	config.KeyInput:           "input",
	config.KeyOutput:          "output",
	config.KeyTitle:           "title",
	config.KeyOnMetadataError: "on-metadata-error",
	config.KeyMaxDepth:        "max-depth",
	config.KeyExtensions:      "extension",
	config.KeyJPEGQuality:     "jpeg-quality",
	config.KeyTimezone:        "timezone",
	config.KeyNoClobber:       "no-clobber",
	config.KeyVerbose:         "verbose",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(handleError(os.Stderr, err))
}

// handleError reports err on w and returns the process exit status.
func handleError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	logger := newLogger(w, false)
	if kind := failure.KindOf(err); kind != "" {
		logger.Error("photo-booker failed.", "kind", string(kind), "error", err)
	} else {
		logger.Error("photo-booker failed.", "error", err)
	}
	return failure.ExitCode(err)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "photo-booker",
		Short: "Turn a directory of photos into a printable PDF",
		Long: "Photo Booker scans a directory for photographs, orders them by the time they were taken " +
			"and writes a letter-sized grayscale PDF with one photo per page.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

			rep, err := pipeline.Run(cmd.Context(), cfg, pipeline.Options{
				Progress: cmd.OutOrStdout(),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			cmd.Printf("Wrote %d pages to %s\n", len(rep.Pages), rep.Output)
			if len(rep.Skipped) > 0 {
				cmd.Printf("Skipped %d files without a usable capture time\n", len(rep.Skipped))
			}
			return nil
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	d := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default ./photo-booker.yaml or ~/.config/photo-booker/photo-booker.yaml)")
	flags.StringP("input", "i", "", "directory to scan for photos")
	flags.StringP("output", "o", "", "PDF file to write")
	flags.StringP("title", "t", "", "document title")
	flags.String("on-metadata-error", d.OnMetadataError, "what to do with photos without a capture time: abort or skip")
	flags.Int("max-depth", d.MaxDepth, "maximum recursion depth (0 = no recursion, -1 = unlimited)")
	flags.StringSlice("extension", nil, "only consider files with this extension (repeatable)")
	flags.Int("jpeg-quality", d.JPEGQuality, "JPEG quality of the page images (1-100)")
	flags.String("timezone", d.Timezone, "time zone of the camera clocks")
	flags.Bool("no-clobber", d.NoClobber, "fail instead of replacing an existing output file")
	flags.BoolP("verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// loadConfig layers flags over environment, config file and defaults.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	v, err := config.NewViper(opts.cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return failure.Config("bind flag --%s: %v", name, err)
		}
	}
	return nil
}

func newScanCmd(opts *options) *cobra.Command {
	var jsonOut bool

	scanCmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "List photos in page order without writing anything",
		Long:  "Scan a directory and print every photo with its capture time, in the order the pages would be written (paths relative to the scan root).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := args[0]

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateOptions(); err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

			scanOpts := scan.DefaultOptions()
			scanOpts.MaxDepth = cfg.MaxDepth
			scanOpts.Extensions = cfg.Extensions
			scanOpts.OnMetadataError = cfg.Policy()
			scanOpts.Metadata = createdat.Options{Location: loc}
			scanOpts.Logger = logger

			res, err := scan.Scan(os.DirFS(directory), ".", scanOpts)
			if err != nil {
				return err
			}
			order.Chronological(res.Records)

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			for _, rec := range res.Records {
				cmd.Println(rec)
			}
			for _, s := range res.Skipped {
				cmd.PrintErrf("skipped %s: %v\n", filepath.FromSlash(s.Path), s.Err)
			}
			if cfg.Verbose {
				cmd.PrintErrf("found %d photos\n", len(res.Records))
			}

			return nil
		},
	}

	scanCmd.Flags().BoolVar(&jsonOut, "json", false, "print records as JSON")

	return scanCmd
}

type jsonSkipped struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type jsonScan struct {
	Records []createdat.Record `json:"records"`
	Skipped []jsonSkipped      `json:"skipped"`
}

func writeJSON(w io.Writer, res scan.Result) error {
	out := jsonScan{
		Records: res.Records,
		Skipped: make([]jsonSkipped, 0, len(res.Skipped)),
	}
	if out.Records == nil {
		out.Records = []createdat.Record{}
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, jsonSkipped{Path: s.Path, Error: s.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := cfg.ValidateOptions(); err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
