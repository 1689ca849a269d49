package points

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"chatgate/internal/infrastructure/logging"
)

// ActiveUsers lists chatters seen at or after since.
type ActiveUsers interface {
	ActiveSince(ctx context.Context, since time.Time) ([]string, error)
}

// ComponentConfig reads per-component settings stored from chat.
type ComponentConfig interface {
	ComponentConfig(ctx context.Context, component, key, def string) string
}

// Payout credits a fixed amount to every user active during the last
// interval, once per interval.
type Payout struct {
	ledger   *Ledger
	users    ActiveUsers
	amount   int64
	interval time.Duration
	config   ComponentConfig
	now      func() time.Time
	log      *slog.Logger
}

func NewPayout(ledger *Ledger, users ActiveUsers, amount int64, interval time.Duration, log *slog.Logger) *Payout {
	return &Payout{
		ledger:   ledger,
		users:    users,
		amount:   amount,
		interval: interval,
		now:      time.Now,
		log:      logging.Component(log, "payout"),
	}
}

// UseConfig lets the "amount" setting of the "payout" component override the
// configured amount on every tick.
func (p *Payout) UseConfig(cfg ComponentConfig) {
	p.config = cfg
}

// Run ticks until ctx is done. A zero interval disables payouts, and so does
// a zero amount unless it can be changed through UseConfig.
func (p *Payout) Run(ctx context.Context) {
	if p.interval <= 0 || (p.amount <= 0 && p.config == nil) {
		p.log.Info("points payout disabled")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil {
				p.log.Warn("points payout failed", "error", err)
			}
		}
	}
}

// Tick pays everyone active within the last interval and returns how many
// users were credited.
func (p *Payout) Tick(ctx context.Context) (int, error) {
	amount := p.currentAmount(ctx)
	if amount <= 0 {
		return 0, nil
	}

	users, err := p.users.ActiveSince(ctx, p.now().Add(-p.interval))
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, user := range users {
		if _, err := p.ledger.Add(ctx, user, amount); err != nil {
			p.log.Warn("credit failed", "user", user, "error", err)
			continue
		}
		paid++
	}
	if paid > 0 {
		p.log.Debug("points paid out", "users", paid, "amount", amount)
	}
	return paid, nil
}

func (p *Payout) currentAmount(ctx context.Context) int64 {
	if p.config == nil {
		return p.amount
	}
	raw := p.config.ComponentConfig(ctx, "payout", "amount", "")
	if raw == "" {
		return p.amount
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		p.log.Warn("payout amount setting is not a number", "value", raw)
		return p.amount
	}
	return amount
}
