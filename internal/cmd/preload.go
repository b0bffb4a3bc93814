package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/preload"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
	"github.com/MeKo-Tech/photogallery/internal/worker"
)

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Load every image of the catalog and report failures",
	Long: `Preload fetches and decodes every image of the selected genre in parallel.
Failed images never abort the batch; the command reports them once all images
have settled. Natural sizes are written to the dimension cache when --cache is set.`,
	RunE: runPreload,
}

func init() {
	rootCmd.AddCommand(preloadCmd)

	preloadCmd.Flags().Bool("progress", true, "Show a progress line")
	preloadCmd.Flags().Bool("allow-failures", false, "Exit successfully even when some images failed")

	bindFlags(preloadCmd.Flags(), []flagBinding{
		{"preload.progress", "progress"},
		{"preload.allow_failures", "allow-failures"},
	})
}

func runPreload(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	g, err := openGallery()
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			logger.Error("Failed to close dimension cache", "error", err)
		}
	}()

	workers := viper.GetInt("preload.workers")
	progress := worker.NewProgress(len(g.Images), viper.GetBool("preload.progress"))
	progress.SetOutput(cmd.ErrOrStderr())

	var dims preload.DimStore
	if g.Cache != nil {
		dims = g.Cache
	}
	loader := preload.NewSourceLoader(g.Fetcher, dims, logger)

	loop := schedule.NewLoop()
	defer loop.Close()

	coord := preload.New(loop, loader, preload.Options{
		Workers:    workers,
		OnProgress: progress.Callback(),
		Logger:     logger,
	})

	logger.Info("Starting preload", "images", len(g.Images), "workers", workers)

	settled := make(chan preload.Result, 1)
	loop.Post(func() {
		coord.Start(g.Images, func(res preload.Result) {
			settled <- res
		})
	})

	var res preload.Result
	select {
	case res = <-settled:
	case <-cmd.Context().Done():
		loop.Post(coord.Cancel)
		logger.Info("Received interrupt signal, cancelling...")
		return cmd.Context().Err()
	}
	progress.Done()

	for _, s := range res.Statuses {
		if s.Err != nil {
			logger.Error("Image failed to load", "index", s.Index, "src", s.Src, "error", s.Err)
			continue
		}
		logger.Debug("Image loaded",
			"index", s.Index,
			"src", s.Src,
			"size", fmt.Sprintf("%dx%d", s.Asset.Width, s.Asset.Height),
			"format", s.Asset.Format,
			"elapsed", s.Elapsed,
		)
	}
	logger.Info(progress.Summary())

	if res.Failed > 0 {
		if viper.GetBool("preload.allow_failures") {
			logger.Warn("Some images failed to load, but continuing due to --allow-failures flag", "failed_count", res.Failed)
			return nil
		}
		return fmt.Errorf("%d of %d images failed to load", res.Failed, len(res.Statuses))
	}
	return nil
}
