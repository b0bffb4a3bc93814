package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/watermark"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark [src|index]...",
	Short: "Export watermarked copies of catalog images",
	Long: `Watermark draws the owner's copyright label into the bottom-right corner of
each image and saves it as a JPEG in the downloads directory.

Images are selected by catalog index or by source path. Without arguments every
image of the selected genre is exported. Cross-origin sources are only exported
when their server grants CORS access to --origin.`,
	RunE: runWatermark,
}

func init() {
	rootCmd.AddCommand(watermarkCmd)

	watermarkCmd.Flags().Int("quality", watermark.DefaultOptions().Quality, "JPEG quality (1-100)")

	bindFlags(watermarkCmd.Flags(), []flagBinding{
		{"watermark.quality", "quality"},
	})
}

func runWatermark(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	g, err := openGallery()
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	targets, err := selectImages(g.Images, args)
	if err != nil {
		return err
	}

	opts := watermark.DefaultOptions()
	opts.Quality = viper.GetInt("watermark.quality")
	comp, err := watermark.New(g.Fetcher, opts, logger)
	if err != nil {
		return err
	}
	sink := watermark.DirSink{Dir: viper.GetString("downloads")}

	out := cmd.OutOrStdout()
	var errs []error
	for _, img := range targets {
		path, err := comp.Export(cmd.Context(), img, g.Owner, sink)
		if err != nil {
			printError(out, "%s: %v", img.Src, err)
			errs = append(errs, err)
			continue
		}
		printSuccess(out, "%s", img.Src)
		printFile(out, path)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d exports failed: %w", len(errs), len(targets), errors.Join(errs...))
	}
	return nil
}

// selectImages resolves each argument as a catalog index or a source path.
// No arguments select every image.
func selectImages(images []catalog.Image, args []string) ([]catalog.Image, error) {
	if len(args) == 0 {
		return images, nil
	}

	out := make([]catalog.Image, 0, len(args))
	for _, arg := range args {
		if i, err := strconv.Atoi(arg); err == nil {
			if i < 0 || i >= len(images) {
				return nil, fmt.Errorf("index %d out of range (catalog has %d images)", i, len(images))
			}
			out = append(out, images[i])
			continue
		}

		found := false
		for _, img := range images {
			if img.Src == arg {
				out = append(out, img)
				found = true
				break
			}
		}
		if !found {
			out = append(out, catalog.Image{Src: arg, Alt: catalog.BaseName(arg)})
		}
	}
	return out, nil
}
