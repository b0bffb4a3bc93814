package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/preload"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "photogallery",
	Short: "A photo gallery engine with staggered reveal, lightbox and watermarked downloads",
	Long: `Photogallery preloads an image catalog, reveals its tiles in visual order,
shows any image in a lightbox and exports watermarked copies.

It can browse a gallery in the terminal, print the reveal schedule of a layout
and serve an image root over HTTP with CORS headers.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env next to the config.
		_ = godotenv.Load()
	},
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context, version string) error {
	return fang.Execute(ctx, rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.StringP("manifest", "m", "gallery.yaml", "Gallery manifest (YAML)")
	flags.StringP("genre", "g", "all", "Genre to show (or \"all\")")
	flags.String("root", ".", "Directory that image sources are resolved against")
	flags.String("origin", "", "Page origin for cross-origin image fetches (e.g. https://example.com)")
	flags.String("owner", "", "Owner name for the watermark (defaults to the manifest owner)")
	flags.String("cache", "", "SQLite file caching natural image dimensions (disabled when empty)")
	flags.String("downloads", "./downloads", "Directory for watermarked downloads")
	flags.Int("workers", preload.DefaultWorkers, "Number of concurrent image loads")
	flags.Duration("reveal-base", layout.DefaultRevealBase, "Reveal delay of the first tile")
	flags.Duration("reveal-step", layout.DefaultRevealStep, "Additional reveal delay per rank")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")

	bindFlags(flags, []flagBinding{
		{"manifest", "manifest"},
		{"genre", "genre"},
		{"root", "root"},
		{"origin", "origin"},
		{"owner", "owner"},
		{"cache", "cache"},
		{"downloads", "downloads"},
		{"preload.workers", "workers"},
		{"reveal.base", "reveal-base"},
		{"reveal.step", "reveal-step"},
		{"verbose", "verbose"},
	})
}

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(flags *pflag.FlagSet, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, flags.Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PHOTOGALLERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
