// Package cli wires the command surface: database lifecycle, feed registry
// operations, OPML interchange and the run loop. Commands stay thin; the
// behavior lives in the internal packages they call.
package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"feedmail/internal/config"
	"feedmail/internal/storage"
)

type app struct {
	configPath string
	dbPath     string
	verbose    int

	opts  *config.Options
	store *storage.Store
}

// NewRootCommand builds the feedmail command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "feedmail",
		Short:   "Forward feed entries to email",
		Long:    "feedmail watches syndication feeds and mails you entries it has not seen before.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to configuration file")
	root.PersistentFlags().StringVarP(&a.dbPath, "database", "d", "", "path to the feed database (overrides config)")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(
		newCmd(a),
		emailCmd(a),
		addCmd(a),
		runCmd(a),
		listCmd(a),
		pauseCmd(a),
		unpauseCmd(a),
		deleteCmd(a),
		resetCmd(a),
		opmlImportCmd(a),
		opmlExportCmd(a),
	)
	return root
}

func (a *app) setup() error {
	opts, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		opts.Database = a.dbPath
	}
	a.opts = opts
	a.store = storage.NewStore(opts.Database)

	level := opts.LogLevel()
	for i := 0; i < a.verbose && level < logrus.DebugLevel; i++ {
		level++
	}
	logrus.SetLevel(level)
	return nil
}

// loadDatabase reads the database for commands that require one to exist.
func (a *app) loadDatabase() (*storage.Database, error) {
	db, err := a.store.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no feed database at %s, run 'feedmail new <address>' first", a.store.Path())
	}
	return db, err
}
