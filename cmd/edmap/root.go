package main

import (
	"github.com/JYF/edmap/internal/config"
	"github.com/JYF/edmap/internal/logging"
	"github.com/JYF/edmap/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:     "edmap",
		Short:   "Generate galaxy-map markers from a station table and the system catalog",
		Long: `edmap joins a station CSV export against the EDSM system coordinate
catalog and writes a markers.json document for the edastro galaxy map.

System coordinates are kept in a persistent index store that is rebuilt
automatically whenever the catalog file is newer than the store.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(configDir); err != nil {
				return err
			}

			logger, cleanup, err := logging.Setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := pipeline.Run(cmd.Context(), logger); err != nil {
				logger.Error().Err(err).Msg("Run aborted")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", ".", "directory containing edmap.cfg.json")
	cmd.Flags().String("systems", "", "path to the system catalog JSONL")
	cmd.Flags().String("stations", "", "path to the station table CSV")
	cmd.Flags().String("output", "", "path of the marker document to write")
	cmd.Flags().String("index", "", "path of the index store file (sqlite backend)")
	cmd.Flags().String("backend", "", "index backend: sqlite, postgres or memory")
	cmd.Flags().String("log-level", "", "log level: trace, debug, info, warn, error")
	cmd.Flags().Bool("rebuild", false, "rebuild the index even if it is fresh")
	cmd.Flags().Bool("compress", false, "gzip the marker document")

	// flags override config file values
	_ = viper.BindPFlag("systemsFile", cmd.Flags().Lookup("systems"))
	_ = viper.BindPFlag("stationsFile", cmd.Flags().Lookup("stations"))
	_ = viper.BindPFlag("outputFile", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("index.path", cmd.Flags().Lookup("index"))
	_ = viper.BindPFlag("index.backend", cmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("logLevel", cmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("rebuild", cmd.Flags().Lookup("rebuild"))
	_ = viper.BindPFlag("output.compress", cmd.Flags().Lookup("compress"))

	return cmd
}
