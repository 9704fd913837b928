package events

// Message events
const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageUpdated = "message.updated"
	EventTypeMessageDeleted = "message.deleted"
)

// Receipt events
const (
	EventTypeReceiptUpdated = "receipt.updated"
)

// Reaction events
const (
	EventTypeReactionAdded   = "reaction.added"
	EventTypeReactionRemoved = "reaction.removed"
)

// Presence events
const (
	EventTypePresenceUpdated = "presence.updated"
	EventTypePresenceSync    = "presence.sync"
)

// Conversation events
const (
	EventTypeConversationCreated = "conversation.created"
	EventTypeConversationUpdated = "conversation.updated"
)

const (
	AggregateMessage      = "message"
	AggregateConversation = "conversation"
	AggregatePresence     = "presence"
)
