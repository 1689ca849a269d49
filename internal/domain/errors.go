package domain

import "errors"

var (
	ErrUnknownCommand         = errors.New("unknown command")
	ErrUnknownSubcommand      = errors.New("unknown subcommand")
	ErrCustomCommand          = errors.New("command is custom and has no handler")
	ErrCommandDisabled        = errors.New("command disabled")
	ErrOnCooldown             = errors.New("command on cooldown")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrInsufficientPoints     = errors.New("insufficient points")
	ErrNegativeAmount         = errors.New("amount must not be negative")
	ErrReservedName           = errors.New("name is reserved by another command")
	ErrWhisperUnavailable     = errors.New("whispers are not available on this platform")
)
