package domain

// SubscriberBinding links a subscriber (Telegram chat) to a tracked address.
type SubscriberBinding struct {
	SubscriberID int64
	Address      string
	Label        string
	Active       bool
	AddedAt      int64 // ms
}

// SubscriberSettings holds per-subscriber switches.
type SubscriberSettings struct {
	SubscriberID  int64
	Name          string
	AlertsEnabled bool
}
