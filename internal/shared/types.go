package shared

import "time"

// Task types
const (
	TypeExpireRules = "discount:expire_rules"
)

// Queues
const (
	QueueDefault     = "default"
	QueueMaintenance = "maintenance"
)

// ExpireRulesPayload - scheduled sweep, RequestedAt is informational
type ExpireRulesPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}
