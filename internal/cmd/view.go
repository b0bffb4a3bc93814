package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/preload"
	"github.com/MeKo-Tech/photogallery/internal/tui"
	"github.com/MeKo-Tech/photogallery/internal/watermark"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the gallery in the terminal",
	Long: `View opens an interactive terminal gallery. Tiles appear one by one in visual
order once every image has loaded; enter opens the lightbox, arrow keys move
between images, w saves a watermarked copy and esc closes.`,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().Int("columns", 0, "Number of columns (0 picks from the terminal width)")
	viewCmd.Flags().Duration("exit", 0, "Lightbox closing transition (default 320ms)")
	viewCmd.Flags().String("log-file", "", "Write logs to this file while the view is open")

	bindFlags(viewCmd.Flags(), []flagBinding{
		{"view.columns", "columns"},
		{"lightbox.exit", "exit"},
		{"view.log_file", "log-file"},
	})
}

func runView(cmd *cobra.Command, args []string) error {
	// Log output would tear the alternate screen.
	var logOut io.Writer = io.Discard
	if path := viper.GetString("view.log_file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger = newLogger(logOut)

	g, err := openGallery()
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	comp, err := watermark.New(g.Fetcher, watermark.Options{Quality: viper.GetInt("watermark.quality")}, logger)
	if err != nil {
		return err
	}

	var dims preload.DimStore
	if g.Cache != nil {
		dims = g.Cache
	}

	title := "Gallery"
	if genre := viper.GetString("genre"); genre != "" {
		title += " · " + genre
	}

	model := tui.New(tui.Config{
		Title:    title,
		Images:   g.Images,
		Owner:    g.Owner,
		Loader:   preload.NewSourceLoader(g.Fetcher, dims, logger),
		Exporter: comp,
		Sink:     watermark.DirSink{Dir: viper.GetString("downloads")},
		Workers:  viper.GetInt("preload.workers"),
		Columns:  viper.GetInt("view.columns"),
		Reveal: layout.Options{
			Base: viper.GetDuration("reveal.base"),
			Step: viper.GetDuration("reveal.step"),
		},
		ExitDuration: viper.GetDuration("lightbox.exit"),
		Logger:       logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	_, err = p.Run()
	return err
}
