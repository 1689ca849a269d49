package domain

import "context"

// Keys of the bot-wide settings table.
const (
	SettingPrefix          = "prefix"
	SettingResponseMention = "responseMention"
	SettingWhisperMode     = "whisperMode"
)

// ExtensionKind separates module settings from component settings sharing
// the extension_settings table.
type ExtensionKind string

const (
	ExtensionModule    ExtensionKind = "module"
	ExtensionComponent ExtensionKind = "component"
)

// SettingsRepository stores string values; ok is false when no row exists.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error

	GetExtensionSetting(ctx context.Context, kind ExtensionKind, extension, key string) (value string, ok bool, err error)
	SetExtensionSetting(ctx context.Context, kind ExtensionKind, extension, key, value string) error
}
