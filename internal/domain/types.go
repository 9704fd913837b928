package domain

import "time"

type ConversationType string

const (
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

func (t ConversationType) Valid() bool {
	return t == ConversationTypeDirect || t == ConversationTypeGroup
}

// DeliveryStatus is a per-recipient receipt. Values are ordered
// sent < delivered < read.
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead      DeliveryStatus = "read"
)

// Rank returns the position of s in the receipt lattice, or 0 if s is unknown.
func (s DeliveryStatus) Rank() int {
	switch s {
	case DeliveryStatusSent:
		return 1
	case DeliveryStatusDelivered:
		return 2
	case DeliveryStatusRead:
		return 3
	default:
		return 0
	}
}

func (s DeliveryStatus) Valid() bool {
	return s.Rank() > 0
}

// AggregateStatus is what a sender sees for one of their messages.
type AggregateStatus string

const (
	AggregateSending   AggregateStatus = "sending"
	AggregateSent      AggregateStatus = "sent"
	AggregateDelivered AggregateStatus = "delivered"
	AggregateRead      AggregateStatus = "read"
)

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
	// PresenceStale is never stored. It is reported for an online row
	// whose last heartbeat is older than the heartbeat interval.
	PresenceStale PresenceStatus = "stale"
)

func (s PresenceStatus) Valid() bool {
	return s == PresenceOnline || s == PresenceAway || s == PresenceOffline
}

type Role string

const (
	RoleProvider Role = "provider"
	RoleClient   Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleProvider || r == RoleClient
}

// Now returns the current UTC time at microsecond precision, matching
// what Postgres stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
