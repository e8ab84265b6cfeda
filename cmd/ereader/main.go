package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yuanying/epubreader/internal/config"
	"github.com/yuanying/epubreader/internal/epub"
	"github.com/yuanying/epubreader/internal/reader"
	"github.com/yuanying/epubreader/internal/store"
)

type globalOptions struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
	ImageMode  string
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ereader",
		Short: "Read EPUB books from the terminal",
		Long: `ereader opens EPUB books, renders their chapters and table of contents,
and keeps a local library with bookmarks and reading progress.

It also prepares the book context handed to a chat assistant.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to YAML configuration file")
	flags.String("data-dir", "", "Directory for the library database and files (default: user config dir)")
	flags.String("log-level", "", "Log level: none, normal, debug (overrides configuration)")
	flags.String("image-mode", "", "Chapter image references: keep, resolve, inline (overrides configuration)")

	cmd.AddCommand(
		newInfoCmd(),
		newTocCmd(),
		newChapterCmd(),
		newContextCmd(),
		newCoverCmd(),
		newLibraryCmd(),
		newBookmarkCmd(),
	)
	return cmd
}

func readGlobalOptions(cmd *cobra.Command) (globalOptions, error) {
	var opts globalOptions
	flags := cmd.Flags()
	opts.ConfigPath, _ = flags.GetString("config")
	opts.DataDir, _ = flags.GetString("data-dir")
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.ImageMode, _ = flags.GetString("image-mode")

	opts.LogLevel = strings.ToLower(strings.TrimSpace(opts.LogLevel))
	switch opts.LogLevel {
	case "", "none", "normal", "debug":
	default:
		return opts, fmt.Errorf("invalid --log-level %q: must be none, normal or debug", opts.LogLevel)
	}
	if _, err := epub.ParseImageMode(opts.ImageMode); err != nil {
		return opts, fmt.Errorf("invalid --image-mode: %w", err)
	}

	if opts.DataDir == "" {
		opts.DataDir = defaultDataDir()
	}
	return opts, nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ereader"
	}
	return filepath.Join(dir, "ereader")
}

// env carries what a command needs: configuration, logger and, once
// requested, the store.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	st      *store.Store
	closers []func() error
}

func setup(cmd *cobra.Command) (*env, error) {
	opts, err := readGlobalOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath, opts.DataDir)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.ImageMode != "" {
		cfg.Reader.ImageMode = opts.ImageMode
	}

	log, closeLog, err := cfg.Log.Build(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, closers: []func() error{closeLog}}, nil
}

func (e *env) store() (*store.Store, error) {
	if e.st != nil {
		return e.st, nil
	}
	if err := os.MkdirAll(filepath.Dir(e.cfg.Storage.Database), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(e.cfg.Storage, e.log)
	if err != nil {
		return nil, err
	}
	e.st = st
	e.closers = append(e.closers, st.Close)
	return st, nil
}

func (e *env) bookOptions() []epub.Option {
	// validated by config.Load
	mode, _ := epub.ParseImageMode(e.cfg.Reader.ImageMode)
	return []epub.Option{epub.WithLogger(e.log), epub.WithImageMode(mode)}
}

func (e *env) openFile(path string) (*epub.Book, error) {
	book, err := epub.Open(path, e.bookOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return book, nil
}

func (e *env) session(book *epub.Book) *reader.Session {
	return reader.New(book, reader.Options{
		CacheTTL: e.cfg.Reader.CacheTTL,
		Prefetch: e.cfg.Reader.Prefetch,
	}, e.log)
}

func (e *env) Close() error {
	var err error
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.closers[i]())
	}
	e.log.Sync()
	return err
}

// run wraps a command body with environment setup and teardown.
func run(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, e.Close())
		}()
		return fn(cmd, args, e)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
