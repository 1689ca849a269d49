package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
	"chatgate/internal/keylock"
)

// Outcome names the gate that stopped a dispatch, or OutcomeExecuted.
type Outcome string

const (
	OutcomeExecuted           Outcome = "executed"
	OutcomeUnknownCommand     Outcome = "unknown_command"
	OutcomeDisabled           Outcome = "disabled"
	OutcomeSubcommandDisabled Outcome = "subcommand_disabled"
	OutcomeOnCooldown         Outcome = "on_cooldown"
	OutcomeNoPermission       Outcome = "no_permission"
	OutcomeInsufficientPoints Outcome = "insufficient_points"
	OutcomeFailed             Outcome = "failed"
)

// Err maps a stopping outcome to its sentinel error.
func (o Outcome) Err() error {
	switch o {
	case OutcomeUnknownCommand:
		return domain.ErrUnknownCommand
	case OutcomeDisabled:
		return domain.ErrCommandDisabled
	case OutcomeSubcommandDisabled:
		return domain.ErrCommandDisabled
	case OutcomeOnCooldown:
		return domain.ErrOnCooldown
	case OutcomeNoPermission:
		return domain.ErrInsufficientPermission
	case OutcomeInsufficientPoints:
		return domain.ErrInsufficientPoints
	default:
		return nil
	}
}

// Ledger is the part of the points ledger the dispatcher needs.
type Ledger interface {
	Get(ctx context.Context, user string) (int64, error)
	Sub(ctx context.Context, user string, amount int64) (bool, error)
}

// Report describes a finished dispatch. Reason is the sentinel of the gate
// that stopped it; Err is set on storage faults only.
type Report struct {
	RequestID  string
	Command    string
	Subcommand string
	Sender     string
	Outcome    Outcome
	Reason     error
	Err        error
	At         time.Time
}

type DispatcherConfig struct {
	Registry  *Registry
	Settings  *Settings
	Cooldowns *CooldownTracker
	Ledger    Ledger
	Out       Replier
	BotName   string
	Prefix    string
	Logger    *slog.Logger

	// OnDispatch, when set, is called once per dispatch after the gates ran.
	OnDispatch func(Report)
}

// Dispatcher runs the gates of a command event in order and invokes the
// handler when all of them pass.
type Dispatcher struct {
	registry   *Registry
	settings   *Settings
	cooldowns  *CooldownTracker
	ledger     Ledger
	out        Replier
	botName    string
	prefix     string
	log        *slog.Logger
	onDispatch func(Report)

	senders *keylock.Map
	pending sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	return &Dispatcher{
		registry:   cfg.Registry,
		settings:   cfg.Settings,
		cooldowns:  cfg.Cooldowns,
		ledger:     cfg.Ledger,
		out:        cfg.Out,
		botName:    cfg.BotName,
		prefix:     prefix,
		log:        logging.Component(cfg.Logger, "dispatcher"),
		onDispatch: cfg.OnDispatch,
		senders:    keylock.New(),
	}
}

// Dispatch runs one command event through the gates. Gate failures are
// reported through the Outcome; the error is only set when a storage fault
// made the gates impossible to evaluate, in which case nothing is replied.
//
// Cooldown start and points debit are committed in the background once the
// handler returned. The sender stays locked until they are committed, so a
// second command from the same sender waits for the first one's commit.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *domain.CommandEvent) (Outcome, error) {
	if ev == nil {
		return OutcomeUnknownCommand, nil
	}

	reqID := uuid.NewString()
	log := d.log.With("request_id", reqID, "command", ev.Command, "sender", ev.Sender)

	unlock := d.senders.Lock(strings.ToLower(ev.Sender))

	outcome, price, err := d.run(ctx, log, ev)
	if err != nil {
		log.Error("dispatch failed", "error", err)
	}

	if outcome == OutcomeExecuted {
		d.pending.Add(1)
		go func() {
			defer d.pending.Done()
			defer unlock()
			d.commit(context.WithoutCancel(ctx), log, ev, price)
		}()
	} else {
		unlock()
	}

	d.report(Report{
		RequestID:  reqID,
		Command:    ev.Command,
		Subcommand: ev.Subcommand,
		Sender:     ev.Sender,
		Outcome:    outcome,
		Reason:     outcome.Err(),
		Err:        err,
		At:         time.Now(),
	})
	return outcome, err
}

// Wait blocks until every background commit started so far has finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

func (d *Dispatcher) run(ctx context.Context, log *slog.Logger, ev *domain.CommandEvent) (Outcome, int64, error) {
	// 1. existence
	name, ok := d.registry.Resolve(ev.Command)
	if !ok {
		log.Debug("not a registered command")
		return OutcomeUnknownCommand, 0, nil
	}
	ev.Command = name

	// 2. enablement
	enabled, err := d.settings.IsEnabled(ctx, name, "")
	if err != nil {
		return OutcomeFailed, 0, err
	}
	if !enabled {
		log.Info("command is installed but not enabled")
		return OutcomeDisabled, 0, nil
	}

	// 3. subcommand resolution
	if len(ev.Args) > 0 {
		sub := normalizeCommandName(ev.Args[0])
		if d.registry.Exists(name, sub) {
			subEnabled, err := d.settings.IsEnabled(ctx, name, sub)
			if err != nil {
				return OutcomeFailed, 0, err
			}
			if !subEnabled {
				log.Info("subcommand is installed but not enabled", "subcommand", sub)
				return OutcomeSubcommandDisabled, 0, nil
			}
			ev.Subcommand = sub
			ev.SubArgs = append([]string(nil), ev.Args[1:]...)
			ev.SubArgString = strings.Join(ev.SubArgs, " ")
		}
	}
	sub := ev.Subcommand
	if sub != "" {
		log = log.With("subcommand", sub)
	}

	// 4. cooldown
	remaining, err := d.cooldowns.IsOnCooldown(ctx, name, ev.Sender, sub)
	if err != nil {
		return OutcomeFailed, 0, err
	}
	if remaining > 0 {
		log.Info("command on cooldown", "remaining_seconds", remaining)
		d.reply(ctx, log, ev, fmt.Sprintf("You need to wait %d seconds to use %s again.", remaining, d.usage(ev)))
		return OutcomeOnCooldown, 0, nil
	}

	// 5. permission
	required, err := d.settings.RequiredLevel(ctx, name, sub)
	if err != nil {
		return OutcomeFailed, 0, err
	}
	if !Authorized(ev.SenderLevel, required) {
		log.Info("insufficient permission", "sender_level", ev.SenderLevel, "required_level", required)
		d.reply(ctx, log, ev, fmt.Sprintf("You don't have what it takes to use %s.", d.usage(ev)))
		return OutcomeNoPermission, 0, nil
	}

	// 6. price and balance
	price, err := d.settings.Price(ctx, name, sub)
	if err != nil {
		return OutcomeFailed, 0, err
	}
	if price > 0 {
		balance, err := d.ledger.Get(ctx, ev.Sender)
		if err != nil {
			return OutcomeFailed, 0, err
		}
		if balance < price {
			log.Info("insufficient points", "price", price, "balance", balance)
			d.reply(ctx, log, ev, fmt.Sprintf("You don't have enough points to use %s. (costs %d, you have %d)",
				d.usage(ev), price, balance))
			return OutcomeInsufficientPoints, 0, nil
		}
	}

	// 7. execution
	if err := d.execute(ctx, ev); err != nil {
		log.Error("command handler failed", "error", err)
	}
	return OutcomeExecuted, price, nil
}

func (d *Dispatcher) execute(ctx context.Context, ev *domain.CommandEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if d.registry.IsCustom(ev.Command) {
		row, err := d.settings.Get(ctx, ev.Command, "")
		if err != nil {
			return fmt.Errorf("fetch response: %w", err)
		}
		text, err := ExpandParams(row.Response, Params{Event: ev, BotName: d.botName})
		if err != nil {
			return fmt.Errorf("expand response: %w", err)
		}
		return d.out.Reply(ctx, ev.Message, text)
	}

	var h Handler
	if ev.Subcommand != "" {
		h, err = d.registry.SubcommandHandler(ev.Command, ev.Subcommand)
	} else {
		h, err = d.registry.Handler(ev.Command)
	}
	if err != nil {
		return err
	}

	args := ev.Args
	if ev.Subcommand != "" {
		args = ev.SubArgs
	}
	return h.Handle(ctx, &Context{
		Event:   ev,
		Message: ev.Message,
		Out:     d.out,
		Raw:     strings.TrimSpace(ev.Command + " " + ev.ArgString()),
		Args:    args,
	})
}

func (d *Dispatcher) commit(ctx context.Context, log *slog.Logger, ev *domain.CommandEvent, price int64) {
	if err := d.cooldowns.Start(ctx, ev.Command, ev.Sender, ev.Subcommand); err != nil {
		log.Error("start cooldown failed", "error", err)
	}

	if price <= 0 {
		return
	}
	ok, err := d.ledger.Sub(ctx, ev.Sender, price)
	switch {
	case err != nil:
		log.Error("debit points failed", "price", price, "error", err)
	case !ok:
		log.Warn("debit points refused", "price", price)
	}
}

func (d *Dispatcher) reply(ctx context.Context, log *slog.Logger, ev *domain.CommandEvent, text string) {
	if err := d.out.Reply(ctx, ev.Message, text); err != nil {
		log.Warn("reply failed", "error", err)
	}
}

func (d *Dispatcher) report(r Report) {
	if d.onDispatch != nil {
		d.onDispatch(r)
	}
}

func (d *Dispatcher) usage(ev *domain.CommandEvent) string {
	prefix := d.prefix
	if ev.Prefix != "" {
		prefix = ev.Prefix
	}
	if ev.Subcommand != "" {
		return prefix + ev.Command + " " + ev.Subcommand
	}
	return prefix + ev.Command
}
