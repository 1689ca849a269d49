package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chatgate/internal/app/events"
	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/config"
	"chatgate/internal/infrastructure/logging"
	"chatgate/internal/usecase/commands"
	"chatgate/internal/usecase/handle_message"
	"chatgate/internal/usecase/points"
	"chatgate/internal/usecase/preferences"
	"chatgate/internal/usecase/users"
)

// Store is the persistence the core needs.
type Store interface {
	domain.CommandRepository
	domain.UserRepository
	domain.SettingsRepository
}

type Options struct {
	Config *config.Config
	Store  Store
	Out    domain.OutgoingMessagePort
	// Followers is optional; without it follow status is never refreshed.
	Followers domain.FollowerChecker
	Logger    *slog.Logger
}

// Core owns every long-lived piece of the bot. It is built once at startup
// and handed to whoever needs the registry, settings, ledger or bus.
type Core struct {
	cfg *config.Config
	log *slog.Logger
	bus *events.Bus

	registry    *commands.Registry
	settings    *commands.Settings
	preferences *preferences.Service
	cooldowns   *commands.CooldownTracker
	ledger      *points.Ledger
	responder   *commands.Responder
	dispatcher  *commands.Dispatcher
	groups      *commands.GroupResolver
	router      *commands.Router
	loader      *commands.ModuleLoader
	custom      *commands.CustomCommandManager
	tracker     *users.Tracker
	payout      *points.Payout
	messages    *handle_message.Interactor

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	readyOnce sync.Once
	ready     chan struct{}
}

func NewCore(opts Options) (*Core, error) {
	if opts.Config == nil {
		return nil, errors.New("app: nil config")
	}
	if opts.Store == nil {
		return nil, errors.New("app: nil store")
	}
	if opts.Out == nil {
		return nil, errors.New("app: nil outgoing port")
	}

	cfg := opts.Config
	log := logging.Component(opts.Logger, "core")

	c := &Core{
		cfg:   cfg,
		log:   log,
		bus:   events.NewBus(opts.Logger),
		ready: make(chan struct{}),
	}

	c.registry = commands.NewRegistry()
	c.settings = commands.NewSettings(c.registry, opts.Store)
	c.cooldowns = commands.NewCooldownTracker(c.settings, cfg.Cooldown.Global, time.Now)
	c.preferences = preferences.New(opts.Store, preferences.Defaults{
		Prefix:          cfg.Bot.Prefix,
		ResponseMention: cfg.Chat.ResponseMention,
		WhisperMode:     cfg.Chat.WhisperMode,
	}, opts.Logger)
	c.ledger = points.NewLedger(opts.Store)
	c.responder = commands.NewResponder(opts.Out, c.preferences, opts.Logger)
	c.dispatcher = commands.NewDispatcher(commands.DispatcherConfig{
		Registry:   c.registry,
		Settings:   c.settings,
		Cooldowns:  c.cooldowns,
		Ledger:     c.ledger,
		Out:        c.responder,
		BotName:    cfg.Bot.Name,
		Prefix:     cfg.Bot.Prefix,
		Logger:     opts.Logger,
		OnDispatch: c.publishDispatch,
	})
	c.groups = commands.NewGroupResolver(opts.Store, cfg.Bot.Name, opts.Logger)
	c.router = commands.NewRouter(cfg.Bot.Prefix, c.groups, c.dispatcher)
	c.router.UsePrefixSource(c.preferences)
	c.loader = commands.NewModuleLoader(c.registry, opts.Store, opts.Logger)
	c.custom = commands.NewCustomCommandManager(c.registry, opts.Store, opts.Logger)
	c.tracker = users.NewTracker(opts.Store, opts.Followers, users.DefaultFollowRecheck, opts.Logger)
	c.payout = points.NewPayout(c.ledger, opts.Store, cfg.Points.PayoutAmount, cfg.Points.PayoutInterval, opts.Logger)
	c.payout.UseConfig(c.preferences)
	c.messages = handle_message.NewInteractor(c.router, c.tracker, c, opts.Logger)

	return c, nil
}

func (c *Core) Bus() *events.Bus { return c.bus }
func (c *Core) Registry() *commands.Registry { return c.registry }
func (c *Core) Settings() *commands.Settings { return c.settings }
func (c *Core) Preferences() *preferences.Service { return c.preferences }
func (c *Core) Cooldowns() *commands.CooldownTracker { return c.cooldowns }
func (c *Core) Ledger() *points.Ledger { return c.ledger }
func (c *Core) Dispatcher() *commands.Dispatcher { return c.dispatcher }
func (c *Core) CustomCommands() *commands.CustomCommandManager { return c.custom }

// LoadModules registers every module, stopping at the first failure.
func (c *Core) LoadModules(ctx context.Context, modules ...commands.Module) error {
	for _, m := range modules {
		if err := c.loader.Load(ctx, m); err != nil {
			return fmt.Errorf("app: load module %s: %w", m.Name(), err)
		}
		c.log.Info("module loaded", slog.String("module", m.Name()))
	}
	return nil
}

func (c *Core) UnloadModule(module string) []string {
	return c.loader.Unload(module)
}

// Start restores the stored custom commands, announces readiness and runs
// the cooldown sweep and points payout loops until Close.
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("app: core already started")
	}

	n, err := c.custom.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("app: load custom commands: %w", err)
	}
	c.log.Info("custom commands loaded", slog.Int("count", n))

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.sweepLoop(runCtx, c.cfg.Cooldown.SweepInterval)
	}()
	go func() {
		defer c.wg.Done()
		c.payout.Run(runCtx)
	}()

	c.markReady()
	return nil
}

// Ready is closed once Start finished loading.
func (c *Core) Ready() <-chan struct{} {
	return c.ready
}

// HandleMessage is the entry point for every incoming chat message.
func (c *Core) HandleMessage(ctx context.Context, msg domain.Message) error {
	return c.messages.Handle(ctx, msg)
}

// PublishMessage puts msg on the chat topic of the bus.
func (c *Core) PublishMessage(msg domain.Message) {
	c.bus.Publish(events.TopicChatMessage, events.NewChatMessageDTO(msg))
}

// Close stops the background loops, waits for pending commits and closes
// the bus. It is safe to call more than once.
func (c *Core) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.dispatcher.Wait()
	c.tracker.Wait()
	c.bus.Close()
}

func (c *Core) markReady() {
	c.readyOnce.Do(func() {
		c.bus.Publish(events.TopicBotReady, events.ReadyDTO{
			BotName:   c.cfg.Bot.Name,
			Commands:  c.registry.Names(),
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
		close(c.ready)
		c.log.Info("bot ready", slog.String("bot", c.cfg.Bot.Name))
	})
}

func (c *Core) sweepLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := c.cooldowns.Sweep(ctx, now); n > 0 {
				c.log.Debug("expired cooldowns swept", slog.Int("count", n))
			}
		}
	}
}

func (c *Core) publishDispatch(r commands.Report) {
	dto := events.DispatchDTO{
		RequestID:  r.RequestID,
		Command:    r.Command,
		Subcommand: r.Subcommand,
		Sender:     r.Sender,
		Outcome:    string(r.Outcome),
		Timestamp:  r.At.UTC().Format(time.RFC3339Nano),
	}
	if r.Reason != nil {
		dto.Reason = r.Reason.Error()
	}
	if r.Err != nil {
		dto.Error = r.Err.Error()
		c.bus.Publish(events.TopicAppError, dto)
	}
	c.bus.Publish(events.TopicCommandDispatch, dto)
}
