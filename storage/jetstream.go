package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// kvWatch one running watch on the KeyValue bucket
type kvWatch struct {
	id       uint64
	watcher  nats.KeyWatcher
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// halt stop the watch goroutine and wait for it to exit
func (w *kvWatch) halt() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Stop()
	})
	<-w.done
}

func (w *kvWatch) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// jetStreamDocumentStore DocumentStore backed by a JetStream KeyValue bucket
//
// Each document is one key "<collection>.<document ID>" holding the document as JSON.
type jetStreamDocumentStore struct {
	common.Component
	kv          nats.KeyValue
	readiness   func() error
	lock        sync.Mutex
	watches     map[uint64]*kvWatch
	nextWatchID uint64
	wg          sync.WaitGroup
	closed      bool
}

// GetJetStreamDocumentStore define a new DocumentStore on top of a KeyValue bucket
//
// readiness reports whether the underlying NATS connection is usable.
func GetJetStreamDocumentStore(kv nats.KeyValue, readiness func() error) (DocumentStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("no KeyValue bucket given")
	}
	logTags := log.Fields{
		"module": "storage", "component": "jetstream-store", "instance": kv.Bucket(),
	}
	return &jetStreamDocumentStore{
		Component: common.Component{LogTags: logTags},
		kv:        kv,
		readiness: readiness,
		watches:   map[uint64]*kvWatch{},
	}, nil
}

func documentKey(collection, documentID string) string {
	return fmt.Sprintf("%s.%s", collection, documentID)
}

func collectionKeys(collection string) string {
	return fmt.Sprintf("%s.*", collection)
}

func translateKVError(op, target string, err error) error {
	if err == nats.ErrKeyNotFound {
		return common.ErrNotFound
	}
	return common.NewStoreFailure(op, target, err)
}

// ================================================================
// CRUD

// List fetch all documents of a collection
func (s *jetStreamDocumentStore) List(ctxt context.Context, collection string) ([]Document, error) {
	watcher, err := s.kv.Watch(collectionKeys(collection), nats.IgnoreDeletes())
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Unable to LIST %s", collection)
		return nil, common.NewStoreFailure("list", collection, err)
	}
	defer func() {
		_ = watcher.Stop()
	}()
	prefix := collection + "."
	result := []Document{}
	for {
		select {
		case <-ctxt.Done():
			return nil, common.NewStoreFailure("list", collection, ctxt.Err())
		case entry := <-watcher.Updates():
			// A nil entry marks the end of the current values
			if entry == nil {
				return result, nil
			}
			data, err := decodeFields(entry.Value())
			if err != nil {
				return nil, common.NewStoreFailure("list", collection, err)
			}
			result = append(
				result, Document{ID: strings.TrimPrefix(entry.Key(), prefix), Data: data},
			)
		}
	}
}

// Get fetch one document
func (s *jetStreamDocumentStore) Get(
	ctxt context.Context, collection, documentID string,
) (Document, error) {
	key := documentKey(collection, documentID)
	entry, err := s.kv.Get(key)
	if err != nil {
		return Document{}, translateKVError("get", key, err)
	}
	data, err := decodeFields(entry.Value())
	if err != nil {
		return Document{}, common.NewStoreFailure("get", key, err)
	}
	return Document{ID: documentID, Data: data}, nil
}

// FindByField fetch documents whose top-level field equals value
func (s *jetStreamDocumentStore) FindByField(
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
func (s *jetStreamDocumentStore) Add(
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
	key := documentKey(collection, documentID)
	revision, err := s.kv.Create(key, serialized)
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to ADD %s", key)
		return Document{}, common.NewStoreFailure("add", key, err)
	}
	log.WithFields(s.LogTags).Debugf("ADD %s@%d", key, revision)
	return Document{ID: documentID, Data: stored}, nil
}

// Update merge top-level fields into an existing document
//
// The write is conditional on the revision read, so a concurrent write makes it fail instead
// of being silently overwritten.
func (s *jetStreamDocumentStore) Update(
	ctxt context.Context, collection, documentID string, fields map[string]interface{},
) error {
	key := documentKey(collection, documentID)
	entry, err := s.kv.Get(key)
	if err != nil {
		return translateKVError("update", key, err)
	}
	current, err := decodeFields(entry.Value())
	if err != nil {
		return common.NewStoreFailure("update", key, err)
	}
	serialized, err := json.Marshal(mergeFields(current, fields))
	if err != nil {
		return common.NewStoreFailure("update", key, err)
	}
	revision, err := s.kv.Update(key, serialized, entry.Revision())
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to UPDATE %s", key)
		return common.NewStoreFailure("update", key, err)
	}
	log.WithFields(s.LogTags).Debugf("UPDATE %s@%d", key, revision)
	return nil
}

// Delete remove a document
func (s *jetStreamDocumentStore) Delete(ctxt context.Context, collection, documentID string) error {
	key := documentKey(collection, documentID)
	if _, err := s.kv.Get(key); err != nil {
		return translateKVError("delete", key, err)
	}
	if err := s.kv.Delete(key); err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to DELETE %s", key)
		return common.NewStoreFailure("delete", key, err)
	}
	log.WithFields(s.LogTags).Debugf("DELETE %s", key)
	return nil
}

// Ready check whether the store is usable
func (s *jetStreamDocumentStore) Ready(ctxt context.Context) error {
	s.lock.Lock()
	closed := s.closed
	s.lock.Unlock()
	if closed {
		return fmt.Errorf("store closed")
	}
	if s.readiness != nil {
		return s.readiness()
	}
	return nil
}

// Close stop all watches. The NATS connection is owned by the caller.
func (s *jetStreamDocumentStore) Close() error {
	s.lock.Lock()
	s.closed = true
	watches := make([]*kvWatch, 0, len(s.watches))
	for _, watch := range s.watches {
		watches = append(watches, watch)
	}
	s.watches = map[uint64]*kvWatch{}
	s.lock.Unlock()
	for _, watch := range watches {
		watch.halt()
	}
	s.wg.Wait()
	return nil
}

// ================================================================
// Watches

// startWatch open a KeyValue watch and process its updates with the given function
//
// process runs on the watch goroutine. It returns when the watch is stopped or the update
// channel closes.
func (s *jetStreamDocumentStore) startWatch(
	keys string,
	logTags log.Fields,
	process func(watch *kvWatch),
) (CancelWatch, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store closed")
	}
	watcher, err := s.kv.Watch(keys)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to start watch")
		return nil, common.NewStoreFailure("watch", keys, err)
	}
	s.nextWatchID++
	watch := &kvWatch{
		id:      s.nextWatchID,
		watcher: watcher,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.watches[watch.id] = watch

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(watch.done)
		log.WithFields(logTags).Debug("Watch started")
		defer log.WithFields(logTags).Debug("Watch stopped")
		process(watch)
	}()

	return func() {
		s.lock.Lock()
		delete(s.watches, watch.id)
		s.lock.Unlock()
		watch.halt()
	}, nil
}

// WatchCollection watch every document of a collection
func (s *jetStreamDocumentStore) WatchCollection(
	ctxt context.Context,
	collection string,
	onChange CollectionChangeHandler,
	onError WatchErrorHandler,
) (CancelWatch, error) {
	prefix := collection + "."
	logTags := s.CopyLogTags(log.Fields{"collection": collection})
	// Content of each document as last seen by this watch
	known := map[string]map[string]interface{}{}

	toChange := func(entry nats.KeyValueEntry) (DocumentChange, bool) {
		documentID := strings.TrimPrefix(entry.Key(), prefix)
		switch entry.Operation() {
		case nats.KeyValuePut:
			data, err := decodeFields(entry.Value())
			if err != nil {
				onError(&common.ListenerFailure{Target: entry.Key(), Err: err})
				return DocumentChange{}, false
			}
			changeType := ChangeAdded
			if _, ok := known[documentID]; ok {
				changeType = ChangeModified
			}
			known[documentID] = data
			return DocumentChange{Type: changeType, ID: documentID, Data: data}, true
		default:
			previous, ok := known[documentID]
			if !ok {
				return DocumentChange{}, false
			}
			delete(known, documentID)
			return DocumentChange{Type: ChangeRemoved, ID: documentID, Data: previous}, true
		}
	}

	return s.startWatch(collectionKeys(collection), logTags, func(watch *kvWatch) {
		updates := watch.watcher.Updates()
		initialDone := false
		pending := []DocumentChange{}
		deliver := func() {
			if len(pending) > 0 && !watch.stopped() {
				onChange(pending)
			}
			pending = []DocumentChange{}
		}
		for {
			select {
			case <-watch.stop:
				return
			case entry, ok := <-updates:
				if !ok {
					if !watch.stopped() {
						onError(&common.ListenerFailure{
							Target: collection, Err: fmt.Errorf("watch update channel closed"),
						})
					}
					return
				}
				if entry == nil {
					initialDone = true
					deliver()
					continue
				}
				if change, ok := toChange(entry); ok {
					pending = append(pending, change)
				}
				if !initialDone {
					continue
				}
				// Fold whatever else is already queued into the same batch
				draining := true
				for draining {
					select {
					case more, ok := <-updates:
						if !ok || more == nil {
							draining = false
							continue
						}
						if change, ok := toChange(more); ok {
							pending = append(pending, change)
						}
					default:
						draining = false
					}
				}
				deliver()
			}
		}
	})
}

// WatchDocument watch one document
func (s *jetStreamDocumentStore) WatchDocument(
	ctxt context.Context,
	collection, documentID string,
	onChange DocumentChangeHandler,
	onError WatchErrorHandler,
) (CancelWatch, error) {
	key := documentKey(collection, documentID)
	logTags := s.CopyLogTags(log.Fields{"collection": collection, "document": documentID})

	return s.startWatch(key, logTags, func(watch *kvWatch) {
		updates := watch.watcher.Updates()
		initialDone := false
		current := DocumentSnapshot{ID: documentID}
		deliver := func() {
			if !watch.stopped() {
				onChange(current)
			}
		}
		for {
			select {
			case <-watch.stop:
				return
			case entry, ok := <-updates:
				if !ok {
					if !watch.stopped() {
						onError(&common.ListenerFailure{
							Target: key, Err: fmt.Errorf("watch update channel closed"),
						})
					}
					return
				}
				if entry == nil {
					initialDone = true
					deliver()
					continue
				}
				snapshot := DocumentSnapshot{ID: documentID}
				if entry.Operation() == nats.KeyValuePut {
					data, err := decodeFields(entry.Value())
					if err != nil {
						onError(&common.ListenerFailure{Target: key, Err: err})
						continue
					}
					snapshot.Exists = true
					snapshot.Data = data
				}
				current = snapshot
				if initialDone {
					deliver()
				}
			}
		}
	})
}
