package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"chatgate/internal/app"
	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/config"
	"chatgate/internal/infrastructure/logging"
	"chatgate/internal/infrastructure/persistence/sqlite"
	twitchinfra "chatgate/internal/infrastructure/platform/twitch"
	twitchadapter "chatgate/internal/interface/adapters/twitch"
	"chatgate/internal/interface/outs"
	"chatgate/internal/usecase/commands"
	"chatgate/internal/usecase/points"
	"chatgate/internal/usecase/preferences"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:          "bot",
	Short:        "Twitch chat bot with gated commands",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath, envFiles...)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if !cfg.HasTwitchLogin() {
		return errors.New("TWITCH_BOT_USERNAME, TWITCH_BOT_ACCESS_TOKEN or TWITCH_BOT_CHANNELS not configured")
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("closing database failed", "error", err)
		}
	}()

	twitchAd := twitchadapter.NewAdapter(twitchadapter.Config{
		Username:   cfg.Twitch.Username,
		OAuthToken: formatTwitchOAuthToken(cfg.Twitch.Token),
		Channels:   cfg.Twitch.Channels,
	}, log)

	multiOut := outs.NewMultiSender()
	multiOut.Register(domain.PlatformTwitch,
		outs.NewRateLimitedSender(twitchAd, cfg.Chat.MessagesPerSecond, cfg.Chat.Burst))

	if cfg.Twitch.ClientID != "" {
		registerTwitchWhispers(ctx, cfg, multiOut, log)
	}

	opts := app.Options{
		Config: cfg,
		Store:  store,
		Out:    multiOut,
		Logger: log,
	}
	if cfg.Twitch.ClientID != "" && cfg.Twitch.APIToken != "" && cfg.Twitch.BroadcasterID != "" {
		followers, err := twitchinfra.NewHelixFollowerService(cfg.Twitch.ClientID, cfg.Twitch.APIToken, cfg.Twitch.BroadcasterID)
		if err != nil {
			log.Warn("follower checks disabled", "error", err)
		} else {
			opts.Followers = followers
		}
	}

	core, err := app.NewCore(opts)
	if err != nil {
		return err
	}
	defer core.Close()

	pointsModule := points.NewModule(core.Ledger())
	pointsModule.UseConfig(core.Preferences())

	if err := core.LoadModules(ctx,
		commands.NewCoreModule(core.CustomCommands()),
		pointsModule,
		preferences.NewModule(core.Preferences()),
	); err != nil {
		return err
	}
	if err := core.Start(ctx); err != nil {
		return err
	}

	twitchAd.SetHandler(core.HandleMessage)

	log.Info("starting bot", "bot", cfg.Bot.Name, "channels", cfg.Twitch.Channels)
	if err := twitchAd.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("twitch adapter: %w", err)
	}

	log.Info("bot stopped")
	return nil
}

// registerTwitchWhispers sends whispers through Helix with the bot's own
// token. IRC cannot whisper, so without it whisper replies go to the channel.
func registerTwitchWhispers(ctx context.Context, cfg *config.Config, multiOut *outs.MultiSender, log *slog.Logger) {
	token := strings.TrimPrefix(strings.TrimSpace(cfg.Twitch.Token), "oauth:")
	whispers, err := twitchinfra.NewHelixWhisperService(ctx, cfg.Twitch.ClientID, token, cfg.Twitch.BotUserID, cfg.Twitch.Username)
	if err != nil {
		log.Warn("whispers disabled", "error", err)
		return
	}
	// Twitch allows 3 whispers per second and 100 per minute
	multiOut.RegisterWhisperer(domain.PlatformTwitch,
		outs.NewRateLimitedWhisperer(whispers, 100.0/60.0, 3))
}

func formatTwitchOAuthToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}
