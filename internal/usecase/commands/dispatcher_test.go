package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/domain"
)

func TestDispatch_QuoteRunsAndStartsCooldown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	quote := &countingHandler{reply: "Never gonna give you up."}
	h.addCommand(t, enabledRow("quote"), quote)

	outcome, err := h.dispatcher.Dispatch(ctx, event("quote", "alice", domain.LevelUser))
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, outcome)
	h.dispatcher.Wait()

	assert.Equal(t, 1, quote.count())
	assert.Equal(t, []string{"Never gonna give you up."}, h.out.texts())

	fired, ok, err := h.cooldowns.LastFired(ctx, "quote", "alice", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now(), fired)
}

func TestDispatch_RaidOnCooldownRepliesRemainingSeconds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	raid := &countingHandler{}
	h.addCommand(t, enabledRow("raid"), raid)
	h.ledger.set("bob", 80)

	require.NoError(t, h.cooldowns.Start(ctx, "raid", "bob", ""))
	h.clock.Advance(10 * time.Second)

	outcome, err := h.dispatcher.Dispatch(ctx, event("raid", "bob", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeOnCooldown, outcome)
	assert.Zero(t, raid.count())
	require.Len(t, h.out.texts(), 1)
	assert.Contains(t, h.out.texts()[0], "20")

	balance, err := h.ledger.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(80), balance)
}

func TestDispatch_VipDeniedBelowRequiredLevel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	vip := &countingHandler{}
	row := enabledRow("vip")
	row.Permission = domain.LevelModerator
	h.addCommand(t, row, vip)

	outcome, err := h.dispatcher.Dispatch(ctx, event("vip", "carol", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeNoPermission, outcome)
	assert.Zero(t, vip.count())
	require.Len(t, h.out.texts(), 1)
	assert.Contains(t, h.out.texts()[0], "don't have what it takes")

	_, started, err := h.cooldowns.LastFired(ctx, "vip", "carol", "")
	require.NoError(t, err)
	assert.False(t, started)
}

func TestDispatch_GambleNeedsEnoughPoints(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gamble := &countingHandler{}
	row := enabledRow("gamble")
	row.Price = 100
	h.addCommand(t, row, gamble)
	h.ledger.set("dave", 50)

	outcome, err := h.dispatcher.Dispatch(ctx, event("gamble", "dave", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeInsufficientPoints, outcome)
	assert.Zero(t, gamble.count())
	require.Len(t, h.out.texts(), 1)
	assert.Contains(t, h.out.texts()[0], "100")
	assert.Contains(t, h.out.texts()[0], "50")

	balance, err := h.ledger.Get(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)
}

func TestDispatch_CustomResponseSentVerbatim(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.repo.SaveCustomCommand(ctx, "hello", "Welcome back!"))
	require.NoError(t, h.registry.RegisterCustom("hello"))

	outcome, err := h.dispatcher.Dispatch(ctx, event("hello", "erin", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeExecuted, outcome)
	assert.Equal(t, []string{"Welcome back!"}, h.out.texts())

	_, started, err := h.cooldowns.LastFired(ctx, "hello", "erin", "")
	require.NoError(t, err)
	assert.True(t, started)
}

func TestDispatch_CustomResponseExpandsParams(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.repo.SaveCustomCommand(ctx, "hug", "$(user) hugs $(1) in $(channel)"))
	require.NoError(t, h.registry.RegisterCustom("hug"))

	_, err := h.dispatcher.Dispatch(ctx, event("hug", "erin", domain.LevelUser, "frank"))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, []string{"erin hugs frank in streamer"}, h.out.texts())
}

func TestDispatch_PermissionBoundaryIsInclusive(t *testing.T) {
	for level := domain.LevelAdministrator; level <= domain.LevelUser; level++ {
		h := newHarness(t)
		row := enabledRow("shoutout")
		row.Permission = domain.LevelTrusted
		row.Cooldown = 0
		h.addCommand(t, row, &countingHandler{})

		outcome, err := h.dispatcher.Dispatch(context.Background(), event("shoutout", "gina", level))
		require.NoError(t, err)
		h.dispatcher.Wait()

		if level <= domain.LevelTrusted {
			assert.Equal(t, OutcomeExecuted, outcome, "level %d", level)
		} else {
			assert.Equal(t, OutcomeNoPermission, outcome, "level %d", level)
		}
	}
}

func TestDispatch_UnknownCommandWinsOverCooldown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addCommand(t, enabledRow("raid"), &countingHandler{})
	require.NoError(t, h.cooldowns.Start(ctx, "raid", "bob", ""))
	require.True(t, h.registry.Unregister("raid"))

	outcome, err := h.dispatcher.Dispatch(ctx, event("raid", "bob", domain.LevelUser))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownCommand, outcome)
	assert.ErrorIs(t, outcome.Err(), domain.ErrUnknownCommand)
	assert.Empty(t, h.out.texts())
}

func TestDispatch_DisabledCommandIsSilent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	h.addCommand(t, domain.DefaultCommandSettings("lurk", "", "test"), handler)

	outcome, err := h.dispatcher.Dispatch(ctx, event("lurk", "hank", domain.LevelAdministrator))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisabled, outcome)
	assert.Zero(t, handler.count())
	assert.Empty(t, h.out.texts())
}

func TestDispatch_BindsEnabledSubcommand(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	h.addCommand(t, enabledRow("quote"), handler, "add")
	sub := domain.DefaultCommandSettings("add", "quote", "test")
	sub.Enabled = true
	h.repo.put(sub)

	outcome, err := h.dispatcher.Dispatch(ctx, event("quote", "ivy", domain.LevelUser, "Add", "be", "kind"))
	require.NoError(t, err)
	h.dispatcher.Wait()

	require.Equal(t, OutcomeExecuted, outcome)
	got := handler.last()
	require.NotNil(t, got)
	assert.Equal(t, "add", got.Event.Subcommand)
	assert.Equal(t, []string{"be", "kind"}, got.Event.SubArgs)
	assert.Equal(t, "be kind", got.Event.SubArgString)
	assert.Equal(t, []string{"be", "kind"}, got.Args)

	// the subcommand has its own cooldown record
	_, parentStarted, err := h.cooldowns.LastFired(ctx, "quote", "ivy", "")
	require.NoError(t, err)
	assert.False(t, parentStarted)
	_, subStarted, err := h.cooldowns.LastFired(ctx, "quote", "ivy", "add")
	require.NoError(t, err)
	assert.True(t, subStarted)
}

func TestDispatch_UnknownFirstArgStaysAnArgument(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	h.addCommand(t, enabledRow("quote"), handler, "add")

	outcome, err := h.dispatcher.Dispatch(ctx, event("quote", "ivy", domain.LevelUser, "42"))
	require.NoError(t, err)
	h.dispatcher.Wait()

	require.Equal(t, OutcomeExecuted, outcome)
	got := handler.last()
	assert.Empty(t, got.Event.Subcommand)
	assert.Equal(t, []string{"42"}, got.Args)
}

func TestDispatch_DisabledSubcommandEndsDispatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	h.addCommand(t, enabledRow("quote"), handler, "remove")
	h.repo.put(domain.DefaultCommandSettings("remove", "quote", "test"))

	outcome, err := h.dispatcher.Dispatch(ctx, event("quote", "ivy", domain.LevelUser, "remove", "3"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubcommandDisabled, outcome)
	assert.Zero(t, handler.count())
	assert.Empty(t, h.out.texts())
}

func TestDispatch_HandlerErrorStillCommits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{err: errors.New("boom")}
	row := enabledRow("slots")
	row.Price = 10
	h.addCommand(t, row, handler)
	h.ledger.set("jill", 25)

	outcome, err := h.dispatcher.Dispatch(ctx, event("slots", "jill", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeExecuted, outcome)
	balance, err := h.ledger.Get(ctx, "jill")
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	remaining, err := h.cooldowns.IsOnCooldown(ctx, "slots", "jill", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCooldownSeconds, remaining)
}

func TestDispatch_HandlerPanicIsContained(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addCommand(t, enabledRow("crash"), HandlerFunc(func(context.Context, *Context) error {
		panic("unexpected")
	}))

	var outcome Outcome
	require.NotPanics(t, func() {
		var err error
		outcome, err = h.dispatcher.Dispatch(ctx, event("crash", "kim", domain.LevelUser))
		require.NoError(t, err)
	})
	h.dispatcher.Wait()
	assert.Equal(t, OutcomeExecuted, outcome)
}

func TestDispatch_FreeCommandDoesNotDebit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addCommand(t, enabledRow("uptime"), &countingHandler{})

	_, err := h.dispatcher.Dispatch(ctx, event("uptime", "liam", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Zero(t, h.ledger.debitCount())
}

func TestDispatch_StorageFaultReturnsErrorWithoutReply(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	h.addCommand(t, enabledRow("quote"), handler)
	h.repo.setFail(true)

	outcome, err := h.dispatcher.Dispatch(ctx, event("quote", "mia", domain.LevelUser))
	assert.ErrorIs(t, err, errStorage)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Zero(t, handler.count())
	assert.Empty(t, h.out.texts())
}

func TestDispatch_ResolvesAliases(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	handler := &countingHandler{}
	require.NoError(t, h.registry.Register(Definition{
		Name: "points", Module: "test", Handler: handler, Aliases: []string{"pts"},
	}))
	h.repo.put(enabledRow("points"))

	ev := event("PTS", "nina", domain.LevelUser)
	outcome, err := h.dispatcher.Dispatch(ctx, ev)
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeExecuted, outcome)
	assert.Equal(t, "points", ev.Command)
	assert.Equal(t, 1, handler.count())
}

func TestDispatch_SameSenderCannotDoubleSpend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	row := enabledRow("gamble")
	row.Price = 30
	row.Cooldown = 0
	h.addCommand(t, row, &countingHandler{})
	h.ledger.set("oscar", 50)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []Outcome
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.dispatcher.Dispatch(ctx, event("gamble", "oscar", domain.LevelUser))
			assert.NoError(t, err)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}()
	}
	wg.Wait()
	h.dispatcher.Wait()

	assert.ElementsMatch(t, []Outcome{OutcomeExecuted, OutcomeInsufficientPoints}, outcomes)
	balance, err := h.ledger.Get(ctx, "oscar")
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)
}

func TestDispatch_ReportsEveryDispatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addCommand(t, enabledRow("quote"), &countingHandler{})

	_, _ = h.dispatcher.Dispatch(ctx, event("quote", "pam", domain.LevelUser))
	_, _ = h.dispatcher.Dispatch(ctx, event("nope", "pam", domain.LevelUser))
	h.dispatcher.Wait()

	h.reportsMu.Lock()
	defer h.reportsMu.Unlock()
	require.Len(t, h.reports, 2)
	assert.Equal(t, OutcomeExecuted, h.reports[0].Outcome)
	assert.NotEmpty(t, h.reports[0].RequestID)
	assert.NoError(t, h.reports[0].Reason)
	assert.Equal(t, OutcomeUnknownCommand, h.reports[1].Outcome)
	assert.ErrorIs(t, h.reports[1].Reason, domain.ErrUnknownCommand)
	assert.NoError(t, h.reports[1].Err)
	assert.NotEqual(t, h.reports[0].RequestID, h.reports[1].RequestID)
}
