package notifications

// Recorder receives delivery outcomes, typically to export metrics.
type Recorder interface {
	NotificationCreated(kind Kind)
	NotificationSuppressed(kind Kind, reason Reason)
	NotificationsRead(count int)
}

type noopRecorder struct{}

func (noopRecorder) NotificationCreated(Kind)            {}
func (noopRecorder) NotificationSuppressed(Kind, Reason) {}
func (noopRecorder) NotificationsRead(int)               {}
