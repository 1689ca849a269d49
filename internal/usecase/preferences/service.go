package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

// Defaults apply while a key has no stored value or the store fails.
type Defaults struct {
	Prefix          string
	ResponseMention bool
	WhisperMode     bool
}

// Service reads bot settings from the store on every call, so a change made
// from chat takes effect on the next message.
type Service struct {
	repo     domain.SettingsRepository
	defaults Defaults
	log      *slog.Logger
}

func New(repo domain.SettingsRepository, defaults Defaults, log *slog.Logger) *Service {
	if defaults.Prefix == "" {
		defaults.Prefix = "!"
	}
	return &Service{
		repo:     repo,
		defaults: defaults,
		log:      logging.Component(log, "preferences"),
	}
}

func (s *Service) Prefix(ctx context.Context) string {
	value, ok := s.get(ctx, domain.SettingPrefix)
	if !ok || strings.TrimSpace(value) == "" {
		return s.defaults.Prefix
	}
	return strings.TrimSpace(value)
}

func (s *Service) ResponseMention(ctx context.Context) bool {
	return s.flag(ctx, domain.SettingResponseMention, s.defaults.ResponseMention)
}

func (s *Service) WhisperMode(ctx context.Context) bool {
	return s.flag(ctx, domain.SettingWhisperMode, s.defaults.WhisperMode)
}

func (s *Service) SetPrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.ContainsAny(prefix, " \t") {
		return fmt.Errorf("preferences: invalid prefix %q", prefix)
	}
	return s.repo.SetSetting(ctx, domain.SettingPrefix, prefix)
}

func (s *Service) SetResponseMention(ctx context.Context, on bool) error {
	return s.repo.SetSetting(ctx, domain.SettingResponseMention, strconv.FormatBool(on))
}

func (s *Service) SetWhisperMode(ctx context.Context, on bool) error {
	return s.repo.SetSetting(ctx, domain.SettingWhisperMode, strconv.FormatBool(on))
}

// ModuleConfig returns the stored value of key for module, or def.
func (s *Service) ModuleConfig(ctx context.Context, module, key, def string) string {
	return s.extension(ctx, domain.ExtensionModule, module, key, def)
}

func (s *Service) SetModuleConfig(ctx context.Context, module, key, value string) error {
	return s.repo.SetExtensionSetting(ctx, domain.ExtensionModule, module, key, value)
}

// ComponentConfig returns the stored value of key for component, or def.
func (s *Service) ComponentConfig(ctx context.Context, component, key, def string) string {
	return s.extension(ctx, domain.ExtensionComponent, component, key, def)
}

func (s *Service) SetComponentConfig(ctx context.Context, component, key, value string) error {
	return s.repo.SetExtensionSetting(ctx, domain.ExtensionComponent, component, key, value)
}

func (s *Service) get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		s.log.Warn("reading setting failed, using default", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

func (s *Service) flag(ctx context.Context, key string, def bool) bool {
	value, ok := s.get(ctx, key)
	if !ok {
		return def
	}
	on, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		s.log.Warn("setting is not a boolean, using default", "key", key, "value", value)
		return def
	}
	return on
}

func (s *Service) extension(ctx context.Context, kind domain.ExtensionKind, extension, key, def string) string {
	value, ok, err := s.repo.GetExtensionSetting(ctx, kind, extension, key)
	if err != nil {
		s.log.Warn("reading extension setting failed, using default",
			"kind", kind, "extension", extension, "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}
	return value
}
