package subscription

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/storage"
	"github.com/go-playground/validator/v10"
)

// Outbox outbound message channel of one connected client
type Outbox interface {
	// Deliver queue a message for the client, reporting whether it was queued. It is called from
	// store watch goroutines and must not call back into the Registry.
	Deliver(msg common.OutboundMessage) bool
}

// Registry tracks which change feeds each connected client is subscribed to
type Registry interface {
	// RegisterClient bind a client ID to its outbound channel
	RegisterClient(ctxt context.Context, clientID string, outbox Outbox) error
	// SubscribeToCollection watch a collection on behalf of a client, returning the registry key
	SubscribeToCollection(ctxt context.Context, clientID, collection string) (string, error)
	// SubscribeToDocument watch one document on behalf of a client, returning the registry key
	SubscribeToDocument(
		ctxt context.Context, clientID, collection, documentID string,
	) (string, error)
	// Unsubscribe cancel the subscription under a key. Unknown keys are ignored.
	Unsubscribe(ctxt context.Context, clientID, key string) error
	// DisconnectClient cancel every subscription of a client and forget the client
	DisconnectClient(ctxt context.Context, clientID string) error
	// ClientKeys list the registry keys currently owned by a client
	ClientKeys(ctxt context.Context, clientID string) ([]string, error)
}

// CollectionKey registry key of a collection subscription
func CollectionKey(clientID, collection string) string {
	return fmt.Sprintf("%s/%s", clientID, collection)
}

// DocumentKey registry key of a document subscription
func DocumentKey(clientID, collection, documentID string) string {
	return fmt.Sprintf("%s/%s/%s", clientID, collection, documentID)
}

// subscriptionEntry one live watch
type subscriptionEntry struct {
	key        string
	clientID   string
	collection string
	documentID string
	cancel     storage.CancelWatch
	// active is cleared before cancel is invoked so late deliveries are dropped
	active int32
}

func (s *subscriptionEntry) kind() string {
	if s.documentID == "" {
		return metrics.KindCollection
	}
	return metrics.KindDocument
}

func (s *subscriptionEntry) isActive() bool {
	return atomic.LoadInt32(&s.active) == 1
}

// clientEntry one registered client
type clientEntry struct {
	outbox Outbox
	keys   map[string]bool
}

// registryImpl implements Registry
//
// The maps are only touched by handlers running on the TaskProcessor event loop.
type registryImpl struct {
	common.Component
	feed          storage.ChangeFeed
	tp            common.TaskProcessor
	validate      *validator.Validate
	metrics       *metrics.Collector
	subscriptions map[string]*subscriptionEntry
	clients       map[string]*clientEntry
}

// DefineRegistry create a new subscription registry
//
// The caller is responsible for starting the TaskProcessor event loop.
func DefineRegistry(
	feed storage.ChangeFeed, tp common.TaskProcessor, collector *metrics.Collector,
) (Registry, error) {
	logTags := log.Fields{
		"module": "subscription", "component": "registry",
	}
	instance := registryImpl{
		Component:     common.Component{LogTags: logTags},
		feed:          feed,
		tp:            tp,
		validate:      common.GetValidator(),
		metrics:       collector,
		subscriptions: make(map[string]*subscriptionEntry),
		clients:       make(map[string]*clientEntry),
	}
	// Add handlers
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(registerClientReq{}), instance.processRegisterClientRequest,
	); err != nil {
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(subscribeReq{}), instance.processSubscribeRequest,
	); err != nil {
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(unsubscribeReq{}), instance.processUnsubscribeRequest,
	); err != nil {
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(disconnectReq{}), instance.processDisconnectRequest,
	); err != nil {
		return nil, err
	}
	if err := tp.AddToTaskExecutionMap(
		reflect.TypeOf(clientKeysReq{}), instance.processClientKeysRequest,
	); err != nil {
		return nil, err
	}
	return &instance, nil
}

// submitAndWait submit a request and wait for its result callback or the caller's context
func (r *registryImpl) submitAndWait(
	ctxt context.Context, request interface{}, complete chan error, action string,
) error {
	if err := r.tp.Submit(ctxt, request); err != nil {
		log.WithError(err).WithFields(r.LogTags).Errorf("Failed to submit %s request", action)
		return err
	}
	select {
	case err := <-complete:
		return err
	case <-ctxt.Done():
		// A result which raced the deadline still wins
		select {
		case err := <-complete:
			return err
		default:
			return ctxt.Err()
		}
	}
}

// ----------------------------------------------------------------------------------------

type registerClientReq struct {
	clientID string
	outbox   Outbox
	resultCB func(error)
}

// RegisterClient bind a client ID to its outbound channel
func (r *registryImpl) RegisterClient(
	ctxt context.Context, clientID string, outbox Outbox,
) error {
	if err := r.validate.Var(clientID, "required,doc_token"); err != nil {
		return fmt.Errorf("invalid client ID '%s': %w", clientID, err)
	}
	if outbox == nil {
		return fmt.Errorf("client %s has no outbox", clientID)
	}
	complete := make(chan error, 1)
	request := registerClientReq{
		clientID: clientID,
		outbox:   outbox,
		resultCB: func(err error) { complete <- err },
	}
	return r.submitAndWait(ctxt, request, complete, "register-client")
}

func (r *registryImpl) processRegisterClientRequest(param interface{}) error {
	request, ok := param.(registerClientReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for register client", reflect.TypeOf(param),
		)
	}
	err := r.ProcessRegisterClientRequest(request.clientID, request.outbox)
	request.resultCB(err)
	return err
}

// ProcessRegisterClientRequest bind a client ID to its outbound channel
func (r *registryImpl) ProcessRegisterClientRequest(clientID string, outbox Outbox) error {
	if _, ok := r.clients[clientID]; ok {
		return fmt.Errorf("client %s already registered", clientID)
	}
	r.clients[clientID] = &clientEntry{outbox: outbox, keys: make(map[string]bool)}
	r.metrics.ClientConnected()
	log.WithFields(r.LogTags).Debugf("Registered client %s", clientID)
	return nil
}

// ----------------------------------------------------------------------------------------

type subscribeReq struct {
	ctxt       context.Context
	clientID   string
	collection string
	// documentID is empty for collection subscriptions
	documentID string
	resultCB   func(string, error)
}

// SubscribeToCollection watch a collection on behalf of a client
func (r *registryImpl) SubscribeToCollection(
	ctxt context.Context, clientID, collection string,
) (string, error) {
	if err := common.ValidateCollectionName(collection, r.validate); err != nil {
		return "", err
	}
	return r.subscribe(ctxt, clientID, collection, "")
}

// SubscribeToDocument watch one document on behalf of a client
func (r *registryImpl) SubscribeToDocument(
	ctxt context.Context, clientID, collection, documentID string,
) (string, error) {
	if err := common.ValidateCollectionName(collection, r.validate); err != nil {
		return "", err
	}
	if err := common.ValidateDocumentID(documentID, r.validate); err != nil {
		return "", err
	}
	return r.subscribe(ctxt, clientID, collection, documentID)
}

func (r *registryImpl) subscribe(
	ctxt context.Context, clientID, collection, documentID string,
) (string, error) {
	complete := make(chan error, 1)
	var key string
	request := subscribeReq{
		ctxt:       ctxt,
		clientID:   clientID,
		collection: collection,
		documentID: documentID,
		resultCB: func(k string, err error) {
			key = k
			complete <- err
		},
	}
	if err := r.submitAndWait(ctxt, request, complete, "subscribe"); err != nil {
		return "", err
	}
	return key, nil
}

func (r *registryImpl) processSubscribeRequest(param interface{}) error {
	request, ok := param.(subscribeReq)
	if !ok {
		return fmt.Errorf("can not process unknown type %s for subscribe", reflect.TypeOf(param))
	}
	key, err := r.ProcessSubscribeRequest(
		request.ctxt, request.clientID, request.collection, request.documentID,
	)
	request.resultCB(key, err)
	return err
}

// ProcessSubscribeRequest open a watch and register it under its key
//
// The "subscribed" acknowledgement is queued before the watch opens, so it precedes every update
// of the key. A watch which can not be established is reported to the client as an error
// message, not to the caller. A request whose caller already gave up changes nothing.
func (r *registryImpl) ProcessSubscribeRequest(
	ctxt context.Context, clientID, collection, documentID string,
) (string, error) {
	if err := ctxt.Err(); err != nil {
		log.WithError(err).WithFields(r.LogTags).Warnf("Dropping expired subscribe from %s", clientID)
		return "", err
	}
	client, ok := r.clients[clientID]
	if !ok {
		return "", fmt.Errorf("client %s is not registered", clientID)
	}

	entry := &subscriptionEntry{
		clientID:   clientID,
		collection: collection,
		documentID: documentID,
		active:     1,
	}
	if documentID == "" {
		entry.key = CollectionKey(clientID, collection)
	} else {
		entry.key = DocumentKey(clientID, collection, documentID)
	}
	logTags := r.CopyLogTags(log.Fields{"client": clientID, "key": entry.key})

	// Last registration wins
	if existing, ok := r.subscriptions[entry.key]; ok {
		log.WithFields(logTags).Info("Replacing existing subscription")
		r.cancelSubscription(existing)
		delete(client.keys, entry.key)
	}

	ack := common.OutboundMessage{
		Event: common.EventSubscribed, Data: common.SubscriptionAckPayload{Key: entry.key},
	}
	if client.outbox.Deliver(ack) {
		r.metrics.MessageDelivered(ack.Event)
	}

	var cancel storage.CancelWatch
	var err error
	if documentID == "" {
		cancel, err = r.feed.WatchCollection(
			ctxt,
			collection,
			r.collectionChangeHandler(entry, client.outbox),
			r.watchErrorHandler(entry, client.outbox),
		)
	} else {
		cancel, err = r.feed.WatchDocument(
			ctxt,
			collection,
			documentID,
			r.documentChangeHandler(entry, client.outbox),
			r.watchErrorHandler(entry, client.outbox),
		)
	}
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to establish watch")
		r.metrics.ListenerFailed(collection)
		r.deliverError(client.outbox, entry, err)
		return entry.key, nil
	}

	entry.cancel = cancel
	if err := ctxt.Err(); err != nil {
		// The caller gave up while the watch was opening
		atomic.StoreInt32(&entry.active, 0)
		cancel()
		return "", err
	}
	r.subscriptions[entry.key] = entry
	client.keys[entry.key] = true
	r.metrics.SubscriptionOpened(entry.kind())
	log.WithFields(logTags).Debug("Subscription established")
	return entry.key, nil
}

// collectionChangeHandler convert collection change batches into collection_update messages
func (r *registryImpl) collectionChangeHandler(
	entry *subscriptionEntry, outbox Outbox,
) storage.CollectionChangeHandler {
	return func(changes []storage.DocumentChange) {
		if len(changes) == 0 || !entry.isActive() {
			return
		}
		records := make([]common.ChangeRecord, 0, len(changes))
		for _, change := range changes {
			records = append(records, common.ChangeRecord{
				Type: string(change.Type), ID: change.ID, Data: change.Data,
			})
		}
		r.deliver(outbox, entry, common.OutboundMessage{
			Event: common.EventCollectionUpdate,
			Data:  common.CollectionUpdatePayload{Collection: entry.collection, Changes: records},
		})
	}
}

// documentChangeHandler convert document snapshots into document_update messages
func (r *registryImpl) documentChangeHandler(
	entry *subscriptionEntry, outbox Outbox,
) storage.DocumentChangeHandler {
	return func(snapshot storage.DocumentSnapshot) {
		if !entry.isActive() {
			return
		}
		payload := common.DocumentUpdatePayload{
			Collection: entry.collection,
			DocumentID: entry.documentID,
			Exists:     snapshot.Exists,
		}
		if snapshot.Exists {
			payload.Data = snapshot.Data
		}
		r.deliver(outbox, entry, common.OutboundMessage{
			Event: common.EventDocumentUpdate, Data: payload,
		})
	}
}

// watchErrorHandler report listener failures to the client. The subscription stays registered.
func (r *registryImpl) watchErrorHandler(
	entry *subscriptionEntry, outbox Outbox,
) storage.WatchErrorHandler {
	return func(err error) {
		if !entry.isActive() {
			return
		}
		log.WithError(err).WithFields(r.LogTags).Errorf("Listener for %s failed", entry.key)
		r.metrics.ListenerFailed(entry.collection)
		r.deliverError(outbox, entry, err)
	}
}

func (r *registryImpl) deliverError(outbox Outbox, entry *subscriptionEntry, err error) {
	var msg common.OutboundMessage
	if entry.documentID == "" {
		msg = common.NewErrorMessage(
			"listener on collection %s failed: %s", entry.collection, err.Error(),
		)
	} else {
		msg = common.NewErrorMessage(
			"listener on document %s/%s failed: %s", entry.collection, entry.documentID, err.Error(),
		)
	}
	if outbox.Deliver(msg) {
		r.metrics.MessageDelivered(msg.Event)
	}
}

func (r *registryImpl) deliver(outbox Outbox, entry *subscriptionEntry, msg common.OutboundMessage) {
	if !entry.isActive() {
		return
	}
	if outbox.Deliver(msg) {
		r.metrics.MessageDelivered(msg.Event)
	}
}

// cancelSubscription stop a watch and forget it. Caller removes the key from the client.
func (r *registryImpl) cancelSubscription(entry *subscriptionEntry) {
	if !atomic.CompareAndSwapInt32(&entry.active, 1, 0) {
		return
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	delete(r.subscriptions, entry.key)
	r.metrics.SubscriptionClosed(entry.kind())
	log.WithFields(r.LogTags).Debugf("Cancelled subscription %s", entry.key)
}

// ----------------------------------------------------------------------------------------

type unsubscribeReq struct {
	clientID string
	key      string
	resultCB func(error)
}

// Unsubscribe cancel the subscription under a key
func (r *registryImpl) Unsubscribe(ctxt context.Context, clientID, key string) error {
	complete := make(chan error, 1)
	request := unsubscribeReq{
		clientID: clientID,
		key:      key,
		resultCB: func(err error) { complete <- err },
	}
	return r.submitAndWait(ctxt, request, complete, "unsubscribe")
}

func (r *registryImpl) processUnsubscribeRequest(param interface{}) error {
	request, ok := param.(unsubscribeReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for unsubscribe", reflect.TypeOf(param),
		)
	}
	err := r.ProcessUnsubscribeRequest(request.clientID, request.key)
	request.resultCB(err)
	return err
}

// ProcessUnsubscribeRequest cancel the subscription under a key. Unknown keys, or keys owned by
// another client, are ignored.
func (r *registryImpl) ProcessUnsubscribeRequest(clientID, key string) error {
	entry, ok := r.subscriptions[key]
	if !ok {
		log.WithFields(r.LogTags).Debugf("Unsubscribe of unknown key %s ignored", key)
		return nil
	}
	if entry.clientID != clientID {
		log.WithFields(r.LogTags).Warnf(
			"Client %s attempted to unsubscribe %s owned by %s", clientID, key, entry.clientID,
		)
		return nil
	}
	r.cancelSubscription(entry)
	if client, ok := r.clients[clientID]; ok {
		delete(client.keys, key)
	}
	return nil
}

// ----------------------------------------------------------------------------------------

type disconnectReq struct {
	clientID string
	resultCB func(error)
}

// DisconnectClient cancel every subscription of a client and forget the client
func (r *registryImpl) DisconnectClient(ctxt context.Context, clientID string) error {
	complete := make(chan error, 1)
	request := disconnectReq{
		clientID: clientID,
		resultCB: func(err error) { complete <- err },
	}
	return r.submitAndWait(ctxt, request, complete, "disconnect-client")
}

func (r *registryImpl) processDisconnectRequest(param interface{}) error {
	request, ok := param.(disconnectReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for disconnect", reflect.TypeOf(param),
		)
	}
	err := r.ProcessDisconnectRequest(request.clientID)
	request.resultCB(err)
	return err
}

// ProcessDisconnectRequest cancel every subscription of a client and forget the client
func (r *registryImpl) ProcessDisconnectRequest(clientID string) error {
	client, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	for key := range client.keys {
		if entry, ok := r.subscriptions[key]; ok {
			r.cancelSubscription(entry)
		}
		delete(client.keys, key)
	}
	delete(r.clients, clientID)
	r.metrics.ClientDisconnected()
	log.WithFields(r.LogTags).Debugf("Disconnected client %s", clientID)
	return nil
}

// ----------------------------------------------------------------------------------------

type clientKeysReq struct {
	clientID string
	resultCB func([]string, error)
}

// ClientKeys list the registry keys currently owned by a client
func (r *registryImpl) ClientKeys(ctxt context.Context, clientID string) ([]string, error) {
	complete := make(chan error, 1)
	var keys []string
	request := clientKeysReq{
		clientID: clientID,
		resultCB: func(k []string, err error) {
			keys = k
			complete <- err
		},
	}
	if err := r.submitAndWait(ctxt, request, complete, "client-keys"); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *registryImpl) processClientKeysRequest(param interface{}) error {
	request, ok := param.(clientKeysReq)
	if !ok {
		return fmt.Errorf(
			"can not process unknown type %s for client keys", reflect.TypeOf(param),
		)
	}
	keys := []string{}
	if client, ok := r.clients[request.clientID]; ok {
		for key := range client.keys {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	request.resultCB(keys, nil)
	return nil
}
