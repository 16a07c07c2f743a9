package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document one stored document
type Document struct {
	// ID is the store assigned document ID
	ID string `json:"id"`
	// Data is the document content
	Data map[string]interface{} `json:"data"`
}

// Flatten merge the document ID into its content for API presentation
func (d Document) Flatten() map[string]interface{} {
	result := make(map[string]interface{}, len(d.Data)+1)
	for k, v := range d.Data {
		result[k] = v
	}
	result["id"] = d.ID
	return result
}

// Decode decode the document content into a typed structure
func (d Document) Decode(target interface{}) error {
	serialized, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(serialized, target)
}

// ToFields convert a typed structure into document fields
func ToFields(source interface{}) (map[string]interface{}, error) {
	serialized, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	result := map[string]interface{}{}
	if err := json.Unmarshal(serialized, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeType type of change reported by a collection watch
type ChangeType string

// Collection change types
const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// DocumentChange one change within a collection watch batch
type DocumentChange struct {
	Type ChangeType
	ID   string
	// Data is the document content. For removals it is the last known content.
	Data map[string]interface{}
}

// DocumentSnapshot current state of a watched document
type DocumentSnapshot struct {
	ID     string
	Exists bool
	// Data is nil when the document does not exist
	Data map[string]interface{}
}

// CollectionChangeHandler receives a batch of collection changes
type CollectionChangeHandler func(changes []DocumentChange)

// DocumentChangeHandler receives a document snapshot
type DocumentChangeHandler func(snapshot DocumentSnapshot)

// WatchErrorHandler receives asynchronous watch failures
type WatchErrorHandler func(err error)

// CancelWatch stops a watch. Once it returns no handler of that watch is called again.
// Calling it more than once is safe.
type CancelWatch func()

// ChangeFeed watch based change notification
//
// The context passed to the watch calls bounds only the establishment of the watch. The watch
// itself lives until its CancelWatch is called or the store is closed.
type ChangeFeed interface {
	// WatchCollection watch every document of a collection. The first batch lists the current
	// content as additions.
	WatchCollection(
		ctxt context.Context,
		collection string,
		onChange CollectionChangeHandler,
		onError WatchErrorHandler,
	) (CancelWatch, error)
	// WatchDocument watch one document. The first snapshot is the current state.
	WatchDocument(
		ctxt context.Context,
		collection, documentID string,
		onChange DocumentChangeHandler,
		onError WatchErrorHandler,
	) (CancelWatch, error)
}

// DocumentStore document database holding named collections
type DocumentStore interface {
	ChangeFeed
	// List fetch all documents of a collection
	List(ctxt context.Context, collection string) ([]Document, error)
	// Get fetch one document. Returns common.ErrNotFound if missing.
	Get(ctxt context.Context, collection, documentID string) (Document, error)
	// FindByField fetch documents whose top-level field equals value
	FindByField(
		ctxt context.Context, collection, field string, value interface{},
	) ([]Document, error)
	// Add store a new document under a generated ID
	Add(ctxt context.Context, collection string, data map[string]interface{}) (Document, error)
	// Update merge top-level fields into an existing document. Returns common.ErrNotFound if
	// missing.
	Update(
		ctxt context.Context, collection, documentID string, fields map[string]interface{},
	) error
	// Delete remove a document. Returns common.ErrNotFound if missing.
	Delete(ctxt context.Context, collection, documentID string) error
	// Ready check whether the store is usable
	Ready(ctxt context.Context) error
	// Close stop all watches and release the store
	Close() error
}

// fieldMatches compare a decoded JSON field against a filter value
func fieldMatches(field interface{}, value interface{}) bool {
	if field == nil || value == nil {
		return field == nil && value == nil
	}
	return fmt.Sprintf("%v", field) == fmt.Sprintf("%v", value)
}

// mergeFields apply a top-level field update onto document content
func mergeFields(current, fields map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(current)+len(fields))
	for k, v := range current {
		result[k] = v
	}
	for k, v := range fields {
		result[k] = v
	}
	return result
}
