package commands

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

var errStorage = errors.New("storage unavailable")

type rowKey struct{ name, parent string }

// memoryRepo is an in-memory domain.CommandRepository.
type memoryRepo struct {
	mu   sync.Mutex
	rows map[rowKey]domain.CommandSettings
	fail bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[rowKey]domain.CommandSettings)}
}

func (r *memoryRepo) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *memoryRepo) put(row domain.CommandSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rowKey{row.Name, row.Parent}] = row
}

func (r *memoryRepo) EnsureCommand(_ context.Context, row domain.CommandSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStorage
	}
	key := rowKey{strings.ToLower(row.Name), strings.ToLower(row.Parent)}
	if _, ok := r.rows[key]; !ok {
		row.Name, row.Parent = key.name, key.parent
		r.rows[key] = row
	}
	return nil
}

func (r *memoryRepo) GetCommand(_ context.Context, name, sub string) (*domain.CommandSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errStorage
	}
	key := rowKey{name, ""}
	if sub != "" {
		key = rowKey{sub, name}
	}
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memoryRepo) UpdateCommand(_ context.Context, name, sub string, patch domain.CommandPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStorage
	}
	key := rowKey{name, ""}
	if sub != "" {
		key = rowKey{sub, name}
	}
	row, ok := r.rows[key]
	if !ok {
		return nil
	}
	if patch.Enabled != nil {
		row.Enabled = *patch.Enabled
	}
	if patch.Permission != nil {
		row.Permission = *patch.Permission
	}
	if patch.Cooldown != nil {
		row.Cooldown = *patch.Cooldown
	}
	if patch.CooldownScope != nil {
		row.CooldownScope = *patch.CooldownScope
	}
	if patch.Price != nil {
		row.Price = *patch.Price
	}
	r.rows[key] = row
	return nil
}

func (r *memoryRepo) SaveCustomCommand(_ context.Context, name, response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStorage
	}
	key := rowKey{name, ""}
	row, ok := r.rows[key]
	if ok && row.Module != domain.CustomModule {
		return domain.ErrReservedName
	}
	if !ok {
		row = domain.DefaultCommandSettings(name, "", domain.CustomModule)
		row.Enabled = true
	}
	row.Response = response
	r.rows[key] = row
	return nil
}

func (r *memoryRepo) ListCustomCommands(context.Context) ([]domain.CommandSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errStorage
	}
	var out []domain.CommandSettings
	for _, row := range r.rows {
		if row.Module == domain.CustomModule && row.Parent == "" {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, func(a, b domain.CommandSettings) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *memoryRepo) DeleteCustomCommand(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStorage
	}
	delete(r.rows, rowKey{name, ""})
	return nil
}

type sentReply struct {
	user      string
	text      string
	broadcast bool
}

type recordingReplier struct {
	mu      sync.Mutex
	replies []sentReply
}

func (r *recordingReplier) Reply(_ context.Context, msg domain.Message, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, sentReply{user: msg.Username, text: text})
	return nil
}

func (r *recordingReplier) Broadcast(_ context.Context, _ domain.Message, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, sentReply{text: text, broadcast: true})
	return nil
}

func (r *recordingReplier) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.replies))
	for _, reply := range r.replies {
		out = append(out, reply.text)
	}
	return out
}

type memoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	debits   int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{balances: make(map[string]int64)}
}

func (l *memoryLedger) set(user string, points int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[user] = points
}

func (l *memoryLedger) Get(_ context.Context, user string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[user], nil
}

func (l *memoryLedger) Sub(_ context.Context, user string, amount int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.balances[user] {
		return false, nil
	}
	l.balances[user] -= amount
	l.debits++
	return true, nil
}

func (l *memoryLedger) debitCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debits
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingHandler records how often it ran and with which context.
type countingHandler struct {
	mu    sync.Mutex
	calls []*Context
	err   error
	reply string
}

func (h *countingHandler) Handle(ctx context.Context, c *Context) error {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
	if h.reply != "" {
		_ = c.Reply(ctx, h.reply)
	}
	return h.err
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func (h *countingHandler) last() *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return nil
	}
	return h.calls[len(h.calls)-1]
}

type harness struct {
	registry   *Registry
	repo       *memoryRepo
	settings   *Settings
	cooldowns  *CooldownTracker
	ledger     *memoryLedger
	out        *recordingReplier
	clock      *fakeClock
	dispatcher *Dispatcher

	reportsMu sync.Mutex
	reports   []Report
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		registry: NewRegistry(),
		repo:     newMemoryRepo(),
		ledger:   newMemoryLedger(),
		out:      &recordingReplier{},
		clock:    newFakeClock(),
	}
	h.settings = NewSettings(h.registry, h.repo)
	h.cooldowns = NewCooldownTracker(h.settings, false, h.clock.Now)
	h.dispatcher = NewDispatcher(DispatcherConfig{
		Registry:  h.registry,
		Settings:  h.settings,
		Cooldowns: h.cooldowns,
		Ledger:    h.ledger,
		Out:       h.out,
		BotName:   "gatebot",
		Logger:    logging.Discard(),
		OnDispatch: func(r Report) {
			h.reportsMu.Lock()
			defer h.reportsMu.Unlock()
			h.reports = append(h.reports, r)
		},
	})
	return h
}

// addCommand registers name with handler and stores row as its settings.
func (h *harness) addCommand(t *testing.T, row domain.CommandSettings, handler Handler, subs ...string) {
	t.Helper()
	subHandlers := make(map[string]Handler, len(subs))
	for _, sub := range subs {
		subHandlers[sub] = nil
	}
	if err := h.registry.Register(Definition{
		Name:        row.Name,
		Module:      row.Module,
		Handler:     handler,
		Subcommands: subHandlers,
	}); err != nil {
		t.Fatalf("register %s: %v", row.Name, err)
	}
	h.repo.put(row)
}

func enabledRow(name string) domain.CommandSettings {
	row := domain.DefaultCommandSettings(name, "", "test")
	row.Enabled = true
	return row
}

func event(command, sender string, level int, args ...string) *domain.CommandEvent {
	return &domain.CommandEvent{
		Command:     command,
		Args:        args,
		Sender:      sender,
		SenderLevel: level,
		Message: domain.Message{
			Platform:  domain.PlatformTwitch,
			ChannelID: "#streamer",
			Username:  sender,
		},
	}
}
