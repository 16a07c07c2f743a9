package common

import (
	"encoding/json"
	"fmt"
)

// Realtime channel event names
const (
	// EventSubscribeCollection inbound request to watch a collection
	EventSubscribeCollection = "subscribe_collection"
	// EventSubscribeDocument inbound request to watch one document
	EventSubscribeDocument = "subscribe_document"
	// EventUnsubscribe inbound request to cancel a watch by registry key
	EventUnsubscribe = "unsubscribe"

	// EventConnected outbound greeting carrying the client ID
	EventConnected = "connected"
	// EventSubscribed outbound ACK of a subscribe request carrying the registry key
	EventSubscribed = "subscribed"
	// EventUnsubscribed outbound ACK of an unsubscribe request
	EventUnsubscribed = "unsubscribed"
	// EventCollectionUpdate outbound batch of collection changes
	EventCollectionUpdate = "collection_update"
	// EventDocumentUpdate outbound document snapshot
	EventDocumentUpdate = "document_update"
	// EventError outbound error report
	EventError = "error"
)

// InboundFrame one frame received from a realtime client
type InboundFrame struct {
	// Event is the event name
	Event string `json:"event" validate:"required"`
	// Data is the event payload, decoded according to Event
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeDocumentRequest payload of a subscribe_document event
type SubscribeDocumentRequest struct {
	// Collection is the collection holding the document
	Collection string `json:"collectionName" validate:"required"`
	// DocumentID is the document to watch
	DocumentID string `json:"documentId" validate:"required"`
}

// OutboundMessage one message sent to a realtime client
type OutboundMessage struct {
	// Event is the event name
	Event string `json:"event"`
	// Data is the event payload
	Data interface{} `json:"data,omitempty"`
}

// String toString function
func (m OutboundMessage) String() string {
	return fmt.Sprintf("MSG[%s]", m.Event)
}

// ConnectedPayload payload of a connected event
type ConnectedPayload struct {
	ClientID string `json:"client_id"`
}

// SubscriptionAckPayload payload of subscribed / unsubscribed events
type SubscriptionAckPayload struct {
	Key string `json:"key"`
}

// ChangeRecord one change within a collection_update
type ChangeRecord struct {
	// Type is one of added, modified, removed
	Type string `json:"type"`
	// ID is the document ID
	ID string `json:"id"`
	// Data is the document content
	Data map[string]interface{} `json:"data"`
}

// CollectionUpdatePayload payload of a collection_update event
type CollectionUpdatePayload struct {
	Collection string         `json:"collectionName"`
	Changes    []ChangeRecord `json:"changes"`
}

// DocumentUpdatePayload payload of a document_update event
type DocumentUpdatePayload struct {
	Collection string                 `json:"collectionName"`
	DocumentID string                 `json:"documentId"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Exists     bool                   `json:"exists"`
}

// ErrorPayload payload of an error event
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewErrorMessage helper function to define an error message
func NewErrorMessage(format string, args ...interface{}) OutboundMessage {
	return OutboundMessage{
		Event: EventError, Data: ErrorPayload{Message: fmt.Sprintf(format, args...)},
	}
}
