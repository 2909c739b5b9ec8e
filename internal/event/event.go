package event

type Type string

const (
	TypeLoginSucceeded      Type = "auth.login.succeeded"
	TypeLoginFailed         Type = "auth.login.failed"
	TypeLogout              Type = "auth.logout"
	TypeRefreshRejected     Type = "auth.refresh.rejected"
	TypeReplaySuspected     Type = "auth.refresh.replay_suspected"
	TypeSessionsInvalidated Type = "auth.sessions.invalidated"
	TypeAccessInvalidated   Type = "auth.access.invalidated"
	TypeUserRegistered      Type = "user.registered"
	TypeEmailVerified       Type = "user.email_verified"
)

type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Actor     Actor          `json:"actor"`
	Timestamp string         `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
