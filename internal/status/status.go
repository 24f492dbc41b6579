package status

import (
	"fmt"
	"strings"

	apperrors "discord-statuskeeper/internal/errors"
)

// ActivityType enumerates the presence activity kinds the bot can hold.
// Cleared is itself a value: a cleared presence is the desired state
// "show no activity", not the absence of a desired state.
type ActivityType string

const (
	ActivityPlaying   ActivityType = "playing"
	ActivityStreaming ActivityType = "streaming"
	ActivityListening ActivityType = "listening"
	ActivityWatching  ActivityType = "watching"
	ActivityCompeting ActivityType = "competing"
	ActivityCustom    ActivityType = "custom"
	ActivityCleared   ActivityType = "cleared"
)

// ParseActivityType converts caller input into an ActivityType.
func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(strings.ToLower(strings.TrimSpace(s))) {
	case ActivityPlaying:
		return ActivityPlaying, nil
	case ActivityStreaming:
		return ActivityStreaming, nil
	case ActivityListening:
		return ActivityListening, nil
	case ActivityWatching:
		return ActivityWatching, nil
	case ActivityCompeting:
		return ActivityCompeting, nil
	case ActivityCustom:
		return ActivityCustom, nil
	case ActivityCleared:
		return ActivityCleared, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown activity type %q", s))
	}
}

// DesiredStatus is the single persisted entity: the presence the operator
// wants in effect. Last write wins; no history is kept.
type DesiredStatus struct {
	ActivityType ActivityType `json:"activityType"`
	Text         string       `json:"text,omitempty"`
	URL          string       `json:"url,omitempty"`
	AboutMeText  string       `json:"aboutMeText,omitempty"`
}

// Default is the status seeded on first boot when nothing is persisted yet.
func Default() DesiredStatus {
	return DesiredStatus{ActivityType: ActivityPlaying, Text: "Discord"}
}

// Cleared is the desired state that removes any visible activity.
func Cleared() DesiredStatus {
	return DesiredStatus{ActivityType: ActivityCleared}
}

// Validate enforces the model invariants:
//   - url is present if and only if the type is streaming
//   - text is required for every type except cleared; custom alone may
//     leave it empty (an emoji-only custom status has no text)
func (s DesiredStatus) Validate() error {
	switch s.ActivityType {
	case ActivityPlaying, ActivityStreaming, ActivityListening,
		ActivityWatching, ActivityCompeting, ActivityCustom, ActivityCleared:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown activity type %q", string(s.ActivityType)))
	}

	if s.ActivityType == ActivityStreaming && s.URL == "" {
		return apperrors.NewValidationError("streaming status requires a url")
	}
	if s.ActivityType != ActivityStreaming && s.URL != "" {
		return apperrors.NewValidationError("url is only valid for streaming status")
	}
	if s.Text == "" && s.ActivityType != ActivityCleared && s.ActivityType != ActivityCustom {
		return apperrors.NewValidationError(fmt.Sprintf("%s status requires text", string(s.ActivityType)))
	}
	return nil
}

// Matches reports whether an observed presence already satisfies this
// desired state. Drift is judged on activity type and text only; the
// about-me text is applied through a different remote call and is not
// visible in gateway presence data.
func (s DesiredStatus) Matches(observed DesiredStatus) bool {
	return s.ActivityType == observed.ActivityType && s.Text == observed.Text
}

func (s DesiredStatus) String() string {
	if s.ActivityType == ActivityCleared {
		return "cleared"
	}
	if s.URL != "" {
		return fmt.Sprintf("%s %q (%s)", string(s.ActivityType), s.Text, s.URL)
	}
	return fmt.Sprintf("%s %q", string(s.ActivityType), s.Text)
}
