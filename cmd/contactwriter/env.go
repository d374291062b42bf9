package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/localcontacts/contactwriter/internal/config"
	"github.com/localcontacts/contactwriter/internal/coordinator"
	"github.com/localcontacts/contactwriter/internal/match"
	"github.com/localcontacts/contactwriter/internal/notify"
	"github.com/localcontacts/contactwriter/internal/reader"
	"github.com/localcontacts/contactwriter/internal/storage/sqlite"
	"github.com/localcontacts/contactwriter/internal/writer"
)

// env bundles the store, writer and resolved config a command needs; Close
// releases the database handle.
type env struct {
	cfg   config.Config
	store *sqlite.Store
	w     *writer.Writer
}

func (e *env) Close() error { return e.store.Close() }

func newEnv(cmd *cobra.Command) (*env, error) {
	v := viper.New()
	if err := v.BindPFlag("db", cmd.Flags().Lookup("db")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("match-threshold", cmd.Flags().Lookup("match-threshold")); err != nil {
		return nil, err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = config.Default().DBPath
	}
	if noAgg, _ := cmd.Flags().GetBool("no-aggregation"); noAgg {
		cfg.AggregationEnabled = false
	}
	if cfg.MatchThreshold > 0 {
		match.Threshold = cfg.MatchThreshold
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(store, notify.NewLoggingSink(nil))
	w := writer.New(coord, reader.New(), nil, nil)
	w.SetAggregationEnabled(cfg.AggregationEnabled)
	return &env{cfg: cfg, store: store, w: w}, nil
}
