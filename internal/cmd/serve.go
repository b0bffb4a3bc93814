package cmd

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the image root and manifest over HTTP",
	Long: `Serve exposes the image root under /images/ and the manifest as JSON under
/manifest.json. Images carry an Access-Control-Allow-Origin header so browser
galleries on another origin can export watermarked copies.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("allow-origin", "*", "Access-Control-Allow-Origin for images (empty disables CORS)")
	serveCmd.Flags().String("cache-control", "public, max-age=3600", "Cache-Control header for served images")
	serveCmd.Flags().String("demo-dir", "", "Directory with static demo files served under /demo/")

	bindFlags(serveCmd.Flags(), []flagBinding{
		{"serve.addr", "addr"},
		{"serve.allow_origin", "allow-origin"},
		{"serve.cache_control", "cache-control"},
		{"serve.demo_dir", "demo-dir"},
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	root := viper.GetString("root")
	demoDir := viper.GetString("serve.demo_dir")

	images, err := server.NewImages(server.ImagesConfig{
		Root:         root,
		AllowOrigin:  viper.GetString("serve.allow_origin"),
		CacheControl: viper.GetString("serve.cache_control"),
	}, logger)
	if err != nil {
		return err
	}

	manifestPath := viper.GetString("manifest")
	manifest, err := catalog.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeMux(images, manifest, demoDir),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-cmd.Context().Done()
		_ = srv.Close()
	}()

	logger.Info("gallery server listening",
		"addr", addr,
		"root", root,
		"manifest", manifestPath,
		"demo_dir", demoDir,
	)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("gallery server stopped", "served", images.Status().Served, "missing", images.Status().Missing)
	return nil
}

func newServeMux(images *server.Images, manifest *catalog.Manifest, demoDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", withCORS(images.StatusHandler()))
	mux.Handle("/manifest.json", withCORS(server.ManifestHandler(manifest, logger)))
	mux.Handle("/images/", images.Handler())

	if demoDir != "" {
		mux.Handle("/demo/", http.StripPrefix("/demo/", http.FileServer(http.Dir(demoDir))))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		target := "/manifest.json"
		if demoDir != "" {
			target = "/demo/"
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
	return mux
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
