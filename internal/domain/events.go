package domain

import (
	"time"
)

type EventType string

const (
	RunStarted      EventType = "RunStarted"
	RunCompleted    EventType = "RunCompleted"
	RunFailed       EventType = "RunFailed"
	ScanRootSkipped EventType = "ScanRootSkipped"
	GroupsFound     EventType = "GroupsFound"
	CatalogFetched  EventType = "CatalogFetched"
	CatalogDegraded EventType = "CatalogDegraded"
	PlanWritten     EventType = "PlanWritten"
)

// Event is one run-lifecycle notification published on the in-process bus and
// consumed by the metrics and notifier subscribers.
type Event struct {
	RunID     string                 `json:"run_id"`
	EventType EventType              `json:"event_type"`
	EventData map[string]interface{} `json:"event_data"`
	CreatedAt time.Time              `json:"created_at"`
}

// GetString safely extracts a string field from EventData.
func (e *Event) GetString(key string) (string, bool) {
	if e.EventData == nil {
		return "", false
	}
	v, ok := e.EventData[key].(string)
	return v, ok
}

// GetInt extracts an int field from EventData, tolerating the numeric types
// that survive a JSON round trip.
func (e *Event) GetInt(key string) (int, bool) {
	if e.EventData == nil {
		return 0, false
	}
	switch v := e.EventData[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
