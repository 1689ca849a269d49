package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

type staticModule struct {
	name  string
	specs []CommandSpec
}

func (m staticModule) Name() string            { return m.name }
func (m staticModule) Commands() []CommandSpec { return m.specs }

func TestModuleLoader_PersistsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	loader := NewModuleLoader(h.registry, h.repo, logging.Discard())

	spec := NewCommandSpec("quote", &countingHandler{})
	spec.Aliases = []string{"q"}
	sub := NewSubcommandSpec("add", nil)
	sub.Permission = domain.LevelModerator
	spec.Subcommands = []SubcommandSpec{sub}
	module := staticModule{name: "quotes", specs: []CommandSpec{spec}}

	require.NoError(t, loader.Load(ctx, module))

	assert.True(t, h.registry.Exists("quote", "add"))
	name, ok := h.registry.Resolve("q")
	require.True(t, ok)
	assert.Equal(t, "quote", name)

	level, err := h.settings.RequiredLevel(ctx, "quote", "add")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelModerator, level)

	_, err = h.settings.SetRequiredLevel(ctx, "quote", domain.LevelTrusted, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"quote"}, loader.Unload("quotes"))
	assert.False(t, h.registry.Exists("quote", ""))

	require.NoError(t, loader.Load(ctx, module))
	level, err = h.settings.RequiredLevel(ctx, "quote", "")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelTrusted, level, "stored settings survive a reload")
}

func TestModuleLoader_RollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addCommand(t, enabledRow("ping"), &countingHandler{})
	loader := NewModuleLoader(h.registry, h.repo, logging.Discard())

	module := staticModule{name: "extras", specs: []CommandSpec{
		NewCommandSpec("uptime", &countingHandler{}),
		NewCommandSpec("ping", &countingHandler{}),
	}}
	assert.ErrorIs(t, loader.Load(ctx, module), domain.ErrReservedName)
	assert.False(t, h.registry.Exists("uptime", ""))

	assert.Error(t, loader.Load(ctx, staticModule{name: domain.CustomModule}))
}

func TestCoreModule_ManagesCustomCommandsFromChat(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mgr := NewCustomCommandManager(h.registry, h.repo, logging.Discard())
	loader := NewModuleLoader(h.registry, h.repo, logging.Discard())
	require.NoError(t, loader.Load(ctx, NewCoreModule(mgr)))

	run := func(sender string, level int, args ...string) Outcome {
		t.Helper()
		outcome, err := h.dispatcher.Dispatch(ctx, event("command", sender, level, args...))
		require.NoError(t, err)
		h.dispatcher.Wait()
		return outcome
	}

	assert.Equal(t, OutcomeNoPermission, run("viewer", domain.LevelUser, "add", "hello", "hi"))
	assert.False(t, h.registry.Exists("hello", ""))

	assert.Equal(t, OutcomeExecuted, run("mod", domain.LevelModerator, "add", "hello", "Hi", "$(user)!"))
	assert.True(t, h.registry.IsCustom("hello"))

	outcome, err := h.dispatcher.Dispatch(ctx, event("hello", "viewer", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()
	assert.Equal(t, OutcomeExecuted, outcome)

	assert.Equal(t, OutcomeExecuted, run("owner", domain.LevelAdministrator, "add", "ping", "nope"))
	assert.Equal(t, OutcomeExecuted, run("owner", domain.LevelAdministrator, "remove", "hello"))
	assert.False(t, h.registry.Exists("hello", ""))

	assert.Equal(t, []string{
		"You don't have what it takes to use !command add.",
		"Command !hello created.",
		"Hi viewer!",
		"!ping is reserved by another command.",
		"Command !hello removed.",
	}, h.out.texts())
}

func TestPingHandler(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	loader := NewModuleLoader(h.registry, h.repo, logging.Discard())
	require.NoError(t, loader.Load(ctx, NewCoreModule(NewCustomCommandManager(h.registry, h.repo, logging.Discard()))))

	outcome, err := h.dispatcher.Dispatch(ctx, event("ping", "viewer", domain.LevelUser))
	require.NoError(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, OutcomeExecuted, outcome)
	assert.Equal(t, []string{"pong from twitch"}, h.out.texts())
}
