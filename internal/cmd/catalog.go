package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/dimcache"
	"github.com/MeKo-Tech/photogallery/internal/source"
)

// gallerySource bundles what every command reads from the shared flags.
type gallerySource struct {
	Manifest *catalog.Manifest
	Images   []catalog.Image
	Owner    string
	Fetcher  *source.Fetcher
	Cache    *dimcache.Cache
}

func (g *gallerySource) Close() error {
	if g.Cache == nil {
		return nil
	}
	return g.Cache.Close()
}

// openGallery loads the manifest and genre, fills known dimensions from the
// cache and prepares a fetcher for the image root.
func openGallery() (*gallerySource, error) {
	manifestPath := viper.GetString("manifest")
	m, err := catalog.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	genre := viper.GetString("genre")
	images, err := m.Images(genre)
	if err != nil {
		return nil, err
	}

	fetcher, err := source.NewFetcher(viper.GetString("root"), viper.GetString("origin"), logger)
	if err != nil {
		return nil, err
	}

	g := &gallerySource{
		Manifest: m,
		Images:   images,
		Owner:    viper.GetString("owner"),
		Fetcher:  fetcher,
	}
	if g.Owner == "" {
		g.Owner = m.Owner
	}

	if path := viper.GetString("cache"); path != "" {
		cache, err := dimcache.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open dimension cache: %w", err)
		}
		g.Cache = cache

		filled, n, err := cache.Fill(g.Images)
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		g.Images = filled
		logger.Debug("Filled dimensions from cache", "path", path, "images", n)
	}

	logger.Debug("Catalog loaded",
		"manifest", manifestPath,
		"genre", genre,
		"images", len(g.Images),
		"owner", g.Owner,
	)
	return g, nil
}
