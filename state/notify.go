package state

// Notifier is the fire-and-forget channel for user-facing messages produced
// by container operations. Implementations must not block.
type Notifier interface {
	Notify(kind, message string)
}

// Notification kinds
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)

type nopNotifier struct{}

func (nopNotifier) Notify(kind, message string) {}
