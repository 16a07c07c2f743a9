package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/google/uuid"
)

// memoryWatch one watch on the in-memory store
type memoryWatch struct {
	id         uint64
	collection string
	// documentID is empty for collection watches
	documentID string
	queue      chan interface{}
	failures   chan error
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// memoryDocumentStore in-process DocumentStore holding documents as serialized JSON
type memoryDocumentStore struct {
	common.Component
	lock        sync.Mutex
	collections map[string]map[string][]byte
	watches     map[uint64]*memoryWatch
	nextWatchID uint64
	watchBuffer int
	wg          sync.WaitGroup
	closed      bool
}

// GetMemoryDocumentStore define a new in-memory DocumentStore
//
// Each watch queues at most watchBuffer pending notifications. When a write finds a full queue
// the notification is dropped and the watch reports a listener failure.
func GetMemoryDocumentStore(instance string, watchBuffer int) (DocumentStore, error) {
	if watchBuffer < 1 {
		return nil, fmt.Errorf("watch buffer must be at least 1")
	}
	logTags := log.Fields{
		"module": "storage", "component": "memory-store", "instance": instance,
	}
	return &memoryDocumentStore{
		Component:   common.Component{LogTags: logTags},
		collections: map[string]map[string][]byte{},
		watches:     map[uint64]*memoryWatch{},
		watchBuffer: watchBuffer,
	}, nil
}

func decodeFields(raw []byte) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ================================================================
// CRUD

// List fetch all documents of a collection
func (s *memoryDocumentStore) List(ctxt context.Context, collection string) ([]Document, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.listLocked(collection)
}

func (s *memoryDocumentStore) listLocked(collection string) ([]Document, error) {
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]Document, 0, len(ids))
	for _, id := range ids {
		data, err := decodeFields(docs[id])
		if err != nil {
			return nil, common.NewStoreFailure("list", collection, err)
		}
		result = append(result, Document{ID: id, Data: data})
	}
	return result, nil
}

// Get fetch one document
func (s *memoryDocumentStore) Get(
	ctxt context.Context, collection, documentID string,
) (Document, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.getLocked(collection, documentID)
}

func (s *memoryDocumentStore) getLocked(collection, documentID string) (Document, error) {
	raw, ok := s.collections[collection][documentID]
	if !ok {
		return Document{}, common.ErrNotFound
	}
	data, err := decodeFields(raw)
	if err != nil {
		return Document{}, common.NewStoreFailure("get", collection+"/"+documentID, err)
	}
	return Document{ID: documentID, Data: data}, nil
}

// FindByField fetch documents whose top-level field equals value
func (s *memoryDocumentStore) FindByField(
	ctxt context.Context, collection, field string, value interface{},
) ([]Document, error) {
	all, err := s.List(ctxt, collection)
	if err != nil {
		return nil, err
	}
	result := []Document{}
	for _, doc := range all {
		if fieldValue, ok := doc.Data[field]; ok && fieldMatches(fieldValue, value) {
			result = append(result, doc)
		}
	}
	return result, nil
}

// Add store a new document under a generated ID
func (s *memoryDocumentStore) Add(
	ctxt context.Context, collection string, data map[string]interface{},
) (Document, error) {
	serialized, err := json.Marshal(data)
	if err != nil {
		return Document{}, common.NewStoreFailure("add", collection, err)
	}
	stored, err := decodeFields(serialized)
	if err != nil {
		return Document{}, common.NewStoreFailure("add", collection, err)
	}
	documentID := uuid.NewString()

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return Document{}, common.NewStoreFailure("add", collection, fmt.Errorf("store closed"))
	}
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = map[string][]byte{}
	}
	s.collections[collection][documentID] = serialized
	s.notifyLocked(collection, documentID, ChangeAdded, serialized)
	log.WithFields(s.LogTags).Debugf("ADD %s/%s", collection, documentID)
	return Document{ID: documentID, Data: stored}, nil
}

// Update merge top-level fields into an existing document
func (s *memoryDocumentStore) Update(
	ctxt context.Context, collection, documentID string, fields map[string]interface{},
) error {
	target := collection + "/" + documentID
	s.lock.Lock()
	defer s.lock.Unlock()
	raw, ok := s.collections[collection][documentID]
	if !ok {
		return common.ErrNotFound
	}
	current, err := decodeFields(raw)
	if err != nil {
		return common.NewStoreFailure("update", target, err)
	}
	serialized, err := json.Marshal(mergeFields(current, fields))
	if err != nil {
		return common.NewStoreFailure("update", target, err)
	}
	s.collections[collection][documentID] = serialized
	s.notifyLocked(collection, documentID, ChangeModified, serialized)
	log.WithFields(s.LogTags).Debugf("UPDATE %s", target)
	return nil
}

// Delete remove a document
func (s *memoryDocumentStore) Delete(ctxt context.Context, collection, documentID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	raw, ok := s.collections[collection][documentID]
	if !ok {
		return common.ErrNotFound
	}
	delete(s.collections[collection], documentID)
	s.notifyLocked(collection, documentID, ChangeRemoved, raw)
	log.WithFields(s.LogTags).Debugf("DELETE %s/%s", collection, documentID)
	return nil
}

// Ready check whether the store is usable
func (s *memoryDocumentStore) Ready(ctxt context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return fmt.Errorf("store closed")
	}
	return nil
}

// Close stop all watches
func (s *memoryDocumentStore) Close() error {
	s.lock.Lock()
	s.closed = true
	watches := make([]*memoryWatch, 0, len(s.watches))
	for _, watch := range s.watches {
		watches = append(watches, watch)
	}
	s.watches = map[uint64]*memoryWatch{}
	s.lock.Unlock()
	for _, watch := range watches {
		watch.halt()
	}
	s.wg.Wait()
	return nil
}

// ================================================================
// Watches

// notifyLocked queue a change for every matching watch. Caller holds the store lock.
func (s *memoryDocumentStore) notifyLocked(
	collection, documentID string, changeType ChangeType, raw []byte,
) {
	for _, watch := range s.watches {
		if watch.collection != collection {
			continue
		}
		var item interface{}
		if watch.documentID == "" {
			data, err := decodeFields(raw)
			if err != nil {
				item = err
			} else {
				item = []DocumentChange{{Type: changeType, ID: documentID, Data: data}}
			}
		} else if watch.documentID == documentID {
			snapshot := DocumentSnapshot{ID: documentID, Exists: changeType != ChangeRemoved}
			if snapshot.Exists {
				data, err := decodeFields(raw)
				if err != nil {
					item = err
				} else {
					snapshot.Data = data
					item = snapshot
				}
			} else {
				item = snapshot
			}
		} else {
			continue
		}
		select {
		case watch.queue <- item:
		default:
			err := &common.ListenerFailure{
				Target: collection,
				Err:    fmt.Errorf("watch queue full, dropped change on %s", documentID),
			}
			log.WithError(err).WithFields(s.LogTags).Error("Change notification dropped")
			select {
			case watch.failures <- err:
			default:
			}
		}
	}
}

// startWatch register a watch and begin delivering its queue
func (s *memoryDocumentStore) startWatch(
	collection, documentID string,
	initialState func() (interface{}, error),
	deliver func(item interface{}),
	onError WatchErrorHandler,
) (CancelWatch, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store closed")
	}
	// The initial state is read while holding the lock so no write can slip in between
	initial, err := initialState()
	if err != nil {
		return nil, err
	}
	s.nextWatchID++
	watch := &memoryWatch{
		id:         s.nextWatchID,
		collection: collection,
		documentID: documentID,
		queue:      make(chan interface{}, s.watchBuffer),
		failures:   make(chan error, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if initial != nil {
		watch.queue <- initial
	}
	s.watches[watch.id] = watch

	watchTags := s.CopyLogTags(log.Fields{"collection": collection, "document": documentID})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(watch.done)
		log.WithFields(watchTags).Debug("Watch started")
		defer log.WithFields(watchTags).Debug("Watch stopped")
		for {
			select {
			case <-watch.stop:
				return
			case err := <-watch.failures:
				if !watch.stopped() {
					onError(err)
				}
			case item := <-watch.queue:
				if watch.stopped() {
					return
				}
				if err, ok := item.(error); ok {
					onError(&common.ListenerFailure{Target: collection, Err: err})
					continue
				}
				deliver(item)
			}
		}
	}()

	return func() {
		s.lock.Lock()
		delete(s.watches, watch.id)
		s.lock.Unlock()
		watch.halt()
	}, nil
}

// halt stop the watch goroutine and wait for it to exit
func (w *memoryWatch) halt() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *memoryWatch) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// WatchCollection watch every document of a collection
func (s *memoryDocumentStore) WatchCollection(
	ctxt context.Context,
	collection string,
	onChange CollectionChangeHandler,
	onError WatchErrorHandler,
) (CancelWatch, error) {
	initialState := func() (interface{}, error) {
		current, err := s.listLocked(collection)
		if err != nil || len(current) == 0 {
			return nil, err
		}
		changes := make([]DocumentChange, 0, len(current))
		for _, doc := range current {
			changes = append(changes, DocumentChange{Type: ChangeAdded, ID: doc.ID, Data: doc.Data})
		}
		return changes, nil
	}
	return s.startWatch(collection, "", initialState, func(item interface{}) {
		if changes, ok := item.([]DocumentChange); ok {
			onChange(changes)
		}
	}, onError)
}

// WatchDocument watch one document
func (s *memoryDocumentStore) WatchDocument(
	ctxt context.Context,
	collection, documentID string,
	onChange DocumentChangeHandler,
	onError WatchErrorHandler,
) (CancelWatch, error) {
	initialState := func() (interface{}, error) {
		snapshot := DocumentSnapshot{ID: documentID}
		doc, err := s.getLocked(collection, documentID)
		if err == nil {
			snapshot.Exists = true
			snapshot.Data = doc.Data
		} else if err != common.ErrNotFound {
			return nil, err
		}
		return snapshot, nil
	}
	return s.startWatch(collection, documentID, initialState, func(item interface{}) {
		if snapshot, ok := item.(DocumentSnapshot); ok {
			onChange(snapshot)
		}
	}, onError)
}
