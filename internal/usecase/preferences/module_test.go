package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
	"chatgate/internal/usecase/commands"
)

type replies struct {
	texts []string
}

func (r *replies) Reply(_ context.Context, _ domain.Message, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *replies) Broadcast(_ context.Context, _ domain.Message, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func commandContext(out commands.Replier, args ...string) *commands.Context {
	return &commands.Context{
		Event: &domain.CommandEvent{Command: "settings", Sender: "streamer"},
		Out:   out,
		Args:  args,
	}
}

func TestModule_SpecsAreAdminOnly(t *testing.T) {
	specs := NewModule(New(newMemorySettings(), Defaults{}, logging.Discard())).Commands()
	require.Len(t, specs, 1)
	assert.Equal(t, domain.LevelAdministrator, specs[0].Permission)
	require.Len(t, specs[0].Subcommands, 3)
	for _, sub := range specs[0].Subcommands {
		assert.Equal(t, domain.LevelAdministrator, sub.Permission, sub.Name)
		assert.Zero(t, sub.Cooldown, sub.Name)
	}
}

func TestModule_ChangesSettings(t *testing.T) {
	ctx := context.Background()
	svc := New(newMemorySettings(), Defaults{}, logging.Discard())
	m := NewModule(svc)
	out := &replies{}

	require.NoError(t, m.prefix(ctx, commandContext(out, "?")))
	require.NoError(t, m.prefix(ctx, commandContext(out)))
	require.NoError(t, m.mention(ctx, commandContext(out, "off")))
	require.NoError(t, m.whisper(ctx, commandContext(out, "ON")))
	require.NoError(t, m.whisper(ctx, commandContext(out, "maybe")))
	require.NoError(t, m.show(ctx, commandContext(out)))

	assert.Equal(t, []string{
		"Prefix set to ?",
		"Usage: settings prefix <prefix>",
		"Mentions turned off.",
		"Whisper replies turned on.",
		"Usage: settings whisper on|off",
		"prefix ?, mention off, whisper on",
	}, out.texts)

	assert.True(t, svc.ResponseMention(ctx))
	assert.True(t, svc.WhisperMode(ctx))
}
