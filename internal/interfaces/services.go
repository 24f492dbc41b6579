package interfaces

import (
	"discord-statuskeeper/internal/status"
)

// Presence defines the operations the reconciler needs from the remote
// chat platform.
type Presence interface {
	// ApplyStatus pushes the desired presence to the gateway. It must be
	// idempotent: applying an already-active status is a no-op remotely.
	ApplyStatus(st status.DesiredStatus) error

	// ObservedStatus reports the presence the platform currently shows for
	// the bot account. ok is false when no observation is available.
	ObservedStatus() (st status.DesiredStatus, ok bool)

	// ApplyAboutMe sets the account's profile about-me text. This is a
	// separate remote call from the presence update.
	ApplyAboutMe(text string) error
}

// StatusService defines the operations the command surfaces invoke.
type StatusService interface {
	SetDesired(st status.DesiredStatus) error
	Desired() (st status.DesiredStatus, ok bool)
	Clear() error
}
