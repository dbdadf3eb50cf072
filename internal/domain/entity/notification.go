package entity

// Payload keys carried in NotificationIntent.Data.
const (
	DataKeyReportID     = "reportId"
	DataKeyLat          = "lat"
	DataKeyLng          = "lng"
	DataKeyLicensePlate = "licensePlate"
	DataKeyPhotoURL     = "photoUrl"
	DataKeyTimestamp    = "timestamp"
	DataKeyPriority     = "priority"
	DataKeyStatus       = "status"
)

// NotificationIntent is one push message addressed to one device token.
// It is built per matched user and handed straight to the push client; it is
// never persisted.
type NotificationIntent struct {
	Token    string
	Priority bool
	Title    string
	Body     string
	Data     map[string]string
}

// AndroidPriority is the Android delivery priority derived from Priority.
func (n *NotificationIntent) AndroidPriority() string {
	if n.Priority {
		return "high"
	}
	return "normal"
}

// APNsPriority is the apns-priority header value derived from Priority.
func (n *NotificationIntent) APNsPriority() string {
	if n.Priority {
		return "10"
	}
	return "5"
}

// SendResult is the outcome of delivering a single message.
type SendResult struct {
	MessageID string
	Error     error
}

// Success reports whether the message was accepted by the push service.
func (r SendResult) Success() bool {
	return r.Error == nil
}

// BatchResult is the outcome of a multi-message send. Responses keeps the order
// of the messages that were sent.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResult
}
