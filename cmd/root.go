package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/config"
	"github.com/Another0Noob/romfilter/internal/logging"
	"github.com/Another0Noob/romfilter/internal/raapi"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	logFile   string
	dataDir   string
	consoleID int
	slug      string
	apiURL    string

	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "romfilter",
	Short: "Build a RetroAchievements catalog and filter a ROM collection against it",
	Long: `romfilter downloads the list of titles with achievements for a console,
together with the checksums RetroAchievements accepts for each title, and
uses that catalog to keep one verified file per title from a local ROM
folder. French releases are preferred, then European, then American.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// persistentPreRunE is attached to rootCmd in init; assigning it in the
// composite literal would form an initialization cycle through closeLog.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	closeLog()
	l, closer, err := logging.New(logging.Options{
		Level:  logLevel,
		Format: logFormat,
		Output: cmd.ErrOrStderr(),
		File:   logFile,
	})
	if err != nil {
		return err
	}
	logCloser = closer
	logger = l.With(slog.String(logging.FieldRunID, uuid.NewString()))
	logger.Debug("starting", slog.String("command", cmd.CommandPath()))
	return nil
}

func Execute() {
	if err := executeContext(context.Background()); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// executeContext runs the command tree with a context cancelled on Ctrl-C or
// SIGTERM, and releases the log file once the command returns.
func executeContext(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()
	defer closeLog()
	return rootCmd.ExecuteContext(ctx)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeLog() {
	if logCloser == nil {
		return
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "close log file: %v\n", err)
	}
	logCloser = nil
	logger = nil
}

func init() {
	rootCmd.PersistentPreRunE = persistentPreRunE
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "config.ini", "path to credentials file")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	pf.StringVar(&logFile, "log-file", "", "also append logs to this file")
	pf.StringVarP(&dataDir, "data-dir", "d", "data", "directory holding the catalog files")
	pf.IntVar(&consoleID, "console", 2, "RetroAchievements console id")
	pf.StringVar(&slug, "slug", "n64", "prefix of the catalog file names")
	pf.StringVar(&apiURL, "api-url", raapi.DefaultBaseURL, "RetroAchievements API base URL")
	_ = pf.MarkHidden("api-url")
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if errors.Is(err, catalog.ErrCredentials) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, config.Guidance())
	}
}

// newClient loads credentials and returns an API client. Missing credentials
// yield catalog.ErrCredentials.
func newClient() (*raapi.Client, error) {
	auth, err := config.LoadAuth(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load auth: %w", err)
	}
	if !auth.Valid() {
		return nil, catalog.ErrCredentials
	}
	return raapi.NewClient(auth, raapi.WithBaseURL(apiURL)), nil
}

func lightPath() string {
	_, light := catalog.Paths(dataDir, slug)
	return light
}

func cmdLogger() *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logger
}
