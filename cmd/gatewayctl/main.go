// Command gatewayctl runs the gateway's resolution engine, audio cache and
// search from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/services/audio"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gatewayctl",
		Usage: "resolve, download and search YouTube audio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "platform backend, `NAME` is youtube or ytdlp (overrides config)",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "audio cache `DIR` (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "print the best audio URL for a video",
				ArgsUsage: "VIDEO_ID_OR_URL...",
				Action:    runResolve,
			},
			{
				Name:      "download",
				Usage:     "download a video's audio into the cache and print its path",
				ArgsUsage: "VIDEO_ID_OR_URL...",
				Action:    runDownload,
			},
			{
				Name:      "search",
				Usage:     "search the catalog",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10, Usage: "maximum number of results"},
				},
				Action: runSearch,
			},
			{
				Name:   "cache",
				Usage:  "list cached audio files",
				Action: runCacheList,
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration",
				Action: runConfig,
			},
		},
		HideHelpCommand: true,
	}
}

// environment bundles the configuration and logger shared by every command.
type environment struct {
	cfg    *config.Config
	logger *utils.Logger
}

func loadEnvironment(c *cli.Context) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Audio.Backend = backend
	}
	if dir := c.String("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
	config.ValidateAndFixConfig(cfg)

	level := zapcore.WarnLevel
	if c.Bool("verbose") {
		level = zapcore.DebugLevel
	}
	logger := utils.NewLogger(utils.LoggerOptions{
		Development:      true,
		Level:            level,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})

	return &environment{cfg: cfg, logger: logger}, nil
}

func (e *environment) resolver() *audio.Resolver {
	var factory audio.BackendFactory
	if e.cfg.Audio.Backend == config.BackendYtdlp {
		factory = audio.NewYtdlpFactory()
	} else {
		factory = audio.NewYouTubeFactory(audio.YouTubeOptions{
			HTTPTimeout: e.cfg.Audio.HTTPTimeout,
			ProxyURL:    e.cfg.Audio.ProxyURL,
		})
	}
	session := audio.NewSession(factory, e.logger, audio.WithInitTimeout(e.cfg.Audio.InitTimeout))
	return audio.NewResolver(session, e.logger, audio.WithResolveTimeout(e.cfg.Audio.ResolveTimeout))
}

func (e *environment) store() (*audio.Store, error) {
	store, err := audio.NewStore(e.cfg.Cache.Dir, audio.NewYtdlpDownloader(e.cfg.Cache.Extension, e.resolver()), e.logger,
		audio.WithDownloadTimeout(e.cfg.Download.Timeout),
		audio.WithExtension(e.cfg.Cache.Extension),
	)
	if err != nil {
		return nil, err
	}
	return store, store.EnsureDir()
}

func videoIDs(c *cli.Context) ([]models.VideoID, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("at least one video id or URL is required")
	}
	ids := make([]models.VideoID, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		ids = append(ids, models.VideoID(utils.NormalizeVideoRef(arg)))
	}
	return ids, nil
}

func runResolve(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ids, err := videoIDs(c)
	if err != nil {
		return err
	}

	resolver := env.resolver()
	for _, id := range ids {
		resolved, err := resolver.ResolveAudioURL(c.Context, id)
		if err != nil {
			return err
		}
		if err := printJSON(c.App.Writer, resolved); err != nil {
			return err
		}
	}
	return nil
}

func runDownload(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ids, err := videoIDs(c)
	if err != nil {
		return err
	}

	store, err := env.store()
	if err != nil {
		return err
	}
	for _, id := range ids {
		path, err := store.GetOrDownload(c.Context, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, path)
	}
	return nil
}

func runSearch(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	query := strings.Join(c.Args().Slice(), " ")
	search := media.NewSearchService(
		media.NewYouTubeProvider(env.cfg.Search.YouTubeAPIKey, env.logger),
		nil,
		media.SearchOptions{DefaultLimit: env.cfg.Search.DefaultLimit, MaxLimit: env.cfg.Search.MaxLimit},
		env.logger,
	)

	resp, err := search.Search(c.Context, query, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, item := range resp.Items {
		fmt.Fprintf(c.App.Writer, "%s  %8s  %s - %s\n",
			item.ID, utils.FormatDuration(item.Duration), item.Artist, utils.TruncateString(item.Title, 60))
	}
	return nil
}

func runCacheList(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	store, err := audio.NewStore(env.cfg.Cache.Dir, nil, env.logger, audio.WithExtension(env.cfg.Cache.Extension))
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(c.App.Writer, "%s  %10d  %s\n", entry.VideoID, entry.Size, entry.Path)
	}
	return nil
}

func runConfig(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, config.GetConfigString(env.cfg))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
