package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// recordingOutbox collects delivered messages
//
// Every message is kept in order in messages. "subscribed" ACKs are left out of arrived so
// tests can wait on updates and errors alone.
type recordingOutbox struct {
	lock     sync.Mutex
	messages []common.OutboundMessage
	arrived  chan common.OutboundMessage
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{arrived: make(chan common.OutboundMessage, 64)}
}

func (o *recordingOutbox) Deliver(msg common.OutboundMessage) bool {
	o.lock.Lock()
	o.messages = append(o.messages, msg)
	o.lock.Unlock()
	if msg.Event != common.EventSubscribed {
		o.arrived <- msg
	}
	return true
}

// events names of every message delivered so far, in order
func (o *recordingOutbox) events() []string {
	o.lock.Lock()
	defer o.lock.Unlock()
	names := make([]string, 0, len(o.messages))
	for _, msg := range o.messages {
		names = append(names, msg.Event)
	}
	return names
}

// ackedKeys keys of every "subscribed" ACK delivered so far, in order
func (o *recordingOutbox) ackedKeys() []string {
	o.lock.Lock()
	defer o.lock.Unlock()
	keys := []string{}
	for _, msg := range o.messages {
		if payload, ok := msg.Data.(common.SubscriptionAckPayload); ok {
			keys = append(keys, payload.Key)
		}
	}
	return keys
}

// closedOutbox an outbox whose session already ended
type closedOutbox struct{}

func (closedOutbox) Deliver(common.OutboundMessage) bool {
	return false
}

func (o *recordingOutbox) wait(t *testing.T) common.OutboundMessage {
	select {
	case msg := <-o.arrived:
		return msg
	case <-time.After(time.Second):
		assert.Fail(t, "no message delivered")
		return common.OutboundMessage{}
	}
}

func (o *recordingOutbox) expectNothing(t *testing.T) {
	select {
	case msg := <-o.arrived:
		assert.Failf(t, "unexpected message", "%s", msg)
	case <-time.After(time.Millisecond * 50):
	}
}

// mockFeed ChangeFeed double recording the handlers it was given
type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) WatchCollection(
	ctxt context.Context,
	collection string,
	onChange storage.CollectionChangeHandler,
	onError storage.WatchErrorHandler,
) (storage.CancelWatch, error) {
	args := m.Called(ctxt, collection, onChange, onError)
	cancel, _ := args.Get(0).(storage.CancelWatch)
	return cancel, args.Error(1)
}

func (m *mockFeed) WatchDocument(
	ctxt context.Context,
	collection, documentID string,
	onChange storage.DocumentChangeHandler,
	onError storage.WatchErrorHandler,
) (storage.CancelWatch, error) {
	args := m.Called(ctxt, collection, documentID, onChange, onError)
	cancel, _ := args.Get(0).(storage.CancelWatch)
	return cancel, args.Error(1)
}

// countedCancel a CancelWatch counting its invocations
func countedCancel(counter *int32) storage.CancelWatch {
	return func() { atomic.AddInt32(counter, 1) }
}

func setupRegistry(
	t *testing.T, feed storage.ChangeFeed,
) (Registry, *metrics.Collector, func()) {
	ctxt, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	tp, err := common.GetNewTaskProcessorInstance(ctxt, "registry-ut", 16)
	assert.Nil(t, err)
	collector := metrics.New(prometheus.NewRegistry())
	uut, err := DefineRegistry(feed, tp, collector)
	assert.Nil(t, err)
	assert.Nil(t, tp.StartEventLoop(&wg))
	return uut, collector, func() {
		assert.Nil(t, tp.StopEventLoop())
		wg.Wait()
		cancel()
	}
}

func TestRegistryKeysAndValidation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store, err := storage.GetMemoryDocumentStore("registry-ut", 8)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	uut, _, stop := setupRegistry(t, store)
	defer stop()

	// Case 0: subscribing for an unregistered client fails
	{
		_, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
		assert.NotNil(err)
	}

	outboxA := newRecordingOutbox()
	outboxB := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outboxA))
	assert.Nil(uut.RegisterClient(utCtxt, "client-b", outboxB))

	// Case 1: duplicate and invalid registration
	assert.NotNil(uut.RegisterClient(utCtxt, "client-a", outboxA))
	assert.NotNil(uut.RegisterClient(utCtxt, "", outboxA))
	assert.NotNil(uut.RegisterClient(utCtxt, "client/x", outboxA))
	assert.NotNil(uut.RegisterClient(utCtxt, "client-c", nil))

	// Case 2: invalid targets
	{
		_, err := uut.SubscribeToCollection(utCtxt, "client-a", "")
		assert.NotNil(err)
		_, err = uut.SubscribeToCollection(utCtxt, "client-a", "zonas/x")
		assert.NotNil(err)
		_, err = uut.SubscribeToDocument(utCtxt, "client-a", "zonas", "")
		assert.NotNil(err)
		_, err = uut.SubscribeToDocument(utCtxt, "client-a", "zonas", "a.b")
		assert.NotNil(err)
	}

	// Case 3: keys are distinct per (client, target) and stable per pair
	{
		keys := map[string]bool{}
		targets := []struct {
			client     string
			collection string
			document   string
		}{
			{"client-a", "zonas", ""},
			{"client-a", "rutas", ""},
			{"client-a", "zonas", "doc1"},
			{"client-a", "zonas", "doc2"},
			{"client-b", "zonas", ""},
			{"client-b", "zonas", "doc1"},
		}
		for _, target := range targets {
			var key string
			var err error
			if target.document == "" {
				key, err = uut.SubscribeToCollection(utCtxt, target.client, target.collection)
			} else {
				key, err = uut.SubscribeToDocument(
					utCtxt, target.client, target.collection, target.document,
				)
			}
			assert.Nil(err)
			assert.False(keys[key], key)
			keys[key] = true
		}
		again, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
		assert.Nil(err)
		assert.Equal(CollectionKey("client-a", "zonas"), again)
		againDoc, err := uut.SubscribeToDocument(utCtxt, "client-b", "zonas", "doc1")
		assert.Nil(err)
		assert.Equal(DocumentKey("client-b", "zonas", "doc1"), againDoc)

		ownedA, err := uut.ClientKeys(utCtxt, "client-a")
		assert.Nil(err)
		assert.Equal([]string{
			"client-a/rutas", "client-a/zonas", "client-a/zonas/doc1", "client-a/zonas/doc2",
		}, ownedA)
	}

	// Case 4: unknown client owns nothing
	{
		keys, err := uut.ClientKeys(utCtxt, "client-z")
		assert.Nil(err)
		assert.Empty(keys)
	}
}

func TestRegistryCollectionUpdates(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store, err := storage.GetMemoryDocumentStore("registry-ut", 8)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	uut, collector, stop := setupRegistry(t, store)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	key, err := uut.SubscribeToCollection(utCtxt, "client-a", "colaboradores")
	assert.Nil(err)
	assert.Equal("client-a/colaboradores", key)
	assert.Equal(
		1.0,
		testutil.ToFloat64(collector.ActiveSubscriptions.WithLabelValues(metrics.KindCollection)),
	)

	// Case 0: empty collection produces no message
	outbox.expectNothing(t)

	// Case 1: one added document produces exactly one collection_update
	doc, err := store.Add(utCtxt, "colaboradores", map[string]interface{}{"nombre": "Ana"})
	assert.Nil(err)
	{
		msg := outbox.wait(t)
		assert.Equal(common.EventCollectionUpdate, msg.Event)
		payload, ok := msg.Data.(common.CollectionUpdatePayload)
		assert.True(ok)
		assert.Equal("colaboradores", payload.Collection)
		assert.Len(payload.Changes, 1)
		assert.Equal("added", payload.Changes[0].Type)
		assert.Equal(doc.ID, payload.Changes[0].ID)
		assert.Equal("Ana", payload.Changes[0].Data["nombre"])
		outbox.expectNothing(t)
	}

	// Case 2: writes to other collections are not forwarded
	_, err = store.Add(utCtxt, "zonas", map[string]interface{}{"nombre_zona": "Norte"})
	assert.Nil(err)
	outbox.expectNothing(t)

	// Case 3: no message after unsubscribe
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", key))
	_, err = store.Add(utCtxt, "colaboradores", map[string]interface{}{"nombre": "Luis"})
	assert.Nil(err)
	outbox.expectNothing(t)
	keys, err := uut.ClientKeys(utCtxt, "client-a")
	assert.Nil(err)
	assert.Empty(keys)

	// Case 4: second unsubscribe and unknown keys are no-ops
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", key))
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", "client-a/never"))
	assert.Equal(
		0.0,
		testutil.ToFloat64(collector.ActiveSubscriptions.WithLabelValues(metrics.KindCollection)),
	)
}

func TestRegistryDocumentUpdates(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store, err := storage.GetMemoryDocumentStore("registry-ut", 8)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	uut, _, stop := setupRegistry(t, store)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	doc, err := store.Add(utCtxt, "colaboradores", map[string]interface{}{"nombre": "Ana"})
	assert.Nil(err)

	key, err := uut.SubscribeToDocument(utCtxt, "client-a", "colaboradores", doc.ID)
	assert.Nil(err)
	assert.Equal(fmt.Sprintf("client-a/colaboradores/%s", doc.ID), key)

	// Case 0: initial snapshot
	{
		msg := outbox.wait(t)
		assert.Equal(common.EventDocumentUpdate, msg.Event)
		payload, ok := msg.Data.(common.DocumentUpdatePayload)
		assert.True(ok)
		assert.True(payload.Exists)
		assert.Equal(doc.ID, payload.DocumentID)
		assert.Equal("Ana", payload.Data["nombre"])
	}

	// Case 1: deletion reports exists=false without data
	assert.Nil(store.Delete(utCtxt, "colaboradores", doc.ID))
	{
		msg := outbox.wait(t)
		payload, ok := msg.Data.(common.DocumentUpdatePayload)
		assert.True(ok)
		assert.False(payload.Exists)
		assert.Nil(payload.Data)
		serialized, err := json.Marshal(&msg)
		assert.Nil(err)
		var decoded struct {
			Event string                 `json:"event"`
			Data  map[string]interface{} `json:"data"`
		}
		assert.Nil(json.Unmarshal(serialized, &decoded))
		assert.Equal("document_update", decoded.Event)
		_, hasData := decoded.Data["data"]
		assert.False(hasData)
		assert.Equal(false, decoded.Data["exists"])
		assert.Equal("colaboradores", decoded.Data["collectionName"])
	}

	// Case 2: disconnect stops delivery and forgets the client
	assert.Nil(uut.DisconnectClient(utCtxt, "client-a"))
	_, err = store.Add(utCtxt, "colaboradores", map[string]interface{}{"nombre": "Otro"})
	assert.Nil(err)
	outbox.expectNothing(t)
	_, err = uut.SubscribeToDocument(utCtxt, "client-a", "colaboradores", doc.ID)
	assert.NotNil(err)
}

func TestRegistryDisconnectCancelsAll(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	var cancelCollection, cancelDocument int32
	feed := new(mockFeed)
	feed.On("WatchCollection", mock.Anything, "colaboradores", mock.Anything, mock.Anything).
		Return(countedCancel(&cancelCollection), nil).Once()
	feed.On("WatchDocument", mock.Anything, "zonas", "z1", mock.Anything, mock.Anything).
		Return(countedCancel(&cancelDocument), nil).Once()

	uut, collector, stop := setupRegistry(t, feed)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))
	assert.Equal(1.0, testutil.ToFloat64(collector.ActiveClients))

	_, err := uut.SubscribeToCollection(utCtxt, "client-a", "colaboradores")
	assert.Nil(err)
	_, err = uut.SubscribeToDocument(utCtxt, "client-a", "zonas", "z1")
	assert.Nil(err)
	keys, err := uut.ClientKeys(utCtxt, "client-a")
	assert.Nil(err)
	assert.Len(keys, 2)

	// Case 0: both handles invoked before disconnect returns
	assert.Nil(uut.DisconnectClient(utCtxt, "client-a"))
	assert.Equal(int32(1), atomic.LoadInt32(&cancelCollection))
	assert.Equal(int32(1), atomic.LoadInt32(&cancelDocument))
	keys, err = uut.ClientKeys(utCtxt, "client-a")
	assert.Nil(err)
	assert.Empty(keys)
	assert.Equal(0.0, testutil.ToFloat64(collector.ActiveClients))

	// Case 1: disconnect is idempotent
	assert.Nil(uut.DisconnectClient(utCtxt, "client-a"))
	assert.Equal(int32(1), atomic.LoadInt32(&cancelCollection))
	assert.Equal(int32(1), atomic.LoadInt32(&cancelDocument))

	feed.AssertExpectations(t)
}

func TestRegistryUnsubscribeOnce(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	var cancelCount int32
	var onChange storage.CollectionChangeHandler
	feed := new(mockFeed)
	feed.On("WatchCollection", mock.Anything, "rutas", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			onChange = args.Get(2).(storage.CollectionChangeHandler)
		}).
		Return(countedCancel(&cancelCount), nil).Once()

	uut, _, stop := setupRegistry(t, feed)
	defer stop()

	outboxA := newRecordingOutbox()
	outboxB := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outboxA))
	assert.Nil(uut.RegisterClient(utCtxt, "client-b", outboxB))

	key, err := uut.SubscribeToCollection(utCtxt, "client-a", "rutas")
	assert.Nil(err)

	// Case 0: another client can not cancel the key
	assert.Nil(uut.Unsubscribe(utCtxt, "client-b", key))
	assert.Equal(int32(0), atomic.LoadInt32(&cancelCount))

	// Case 1: an empty batch is not forwarded
	onChange([]storage.DocumentChange{})
	outboxA.expectNothing(t)

	// Case 2: unsubscribe twice cancels once
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", key))
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", key))
	assert.Equal(int32(1), atomic.LoadInt32(&cancelCount))

	// Case 3: a change arriving after cancel is dropped
	onChange([]storage.DocumentChange{
		{Type: storage.ChangeAdded, ID: "x", Data: map[string]interface{}{}},
	})
	outboxA.expectNothing(t)

	feed.AssertExpectations(t)
}

func TestRegistryListenerFailures(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	var cancelCount int32
	var onError storage.WatchErrorHandler
	feed := new(mockFeed)
	feed.On("WatchCollection", mock.Anything, "incentivos", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			onError = args.Get(3).(storage.WatchErrorHandler)
		}).
		Return(countedCancel(&cancelCount), nil).Once()
	feed.On("WatchDocument", mock.Anything, "incentivos", "broken", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("backend unavailable")).Once()

	uut, collector, stop := setupRegistry(t, feed)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	key, err := uut.SubscribeToCollection(utCtxt, "client-a", "incentivos")
	assert.Nil(err)

	// Case 0: an asynchronous failure becomes an error message and the listener stays
	onError(fmt.Errorf("permission denied"))
	{
		msg := outbox.wait(t)
		assert.Equal(common.EventError, msg.Event)
		payload, ok := msg.Data.(common.ErrorPayload)
		assert.True(ok)
		assert.Contains(payload.Message, "incentivos")
		assert.Contains(payload.Message, "permission denied")
		keys, err := uut.ClientKeys(utCtxt, "client-a")
		assert.Nil(err)
		assert.Equal([]string{key}, keys)
		assert.Equal(int32(0), atomic.LoadInt32(&cancelCount))
	}

	// Case 1: a watch which can not be established is reported to the client, not the caller
	{
		docKey, err := uut.SubscribeToDocument(utCtxt, "client-a", "incentivos", "broken")
		assert.Nil(err)
		assert.Equal("client-a/incentivos/broken", docKey)
		msg := outbox.wait(t)
		assert.Equal(common.EventError, msg.Event)
		payload, ok := msg.Data.(common.ErrorPayload)
		assert.True(ok)
		assert.Contains(payload.Message, "backend unavailable")
		keys, err := uut.ClientKeys(utCtxt, "client-a")
		assert.Nil(err)
		assert.Equal([]string{key}, keys)
	}
	assert.Equal(2.0, testutil.ToFloat64(collector.ListenerFailures.WithLabelValues("incentivos")))

	feed.AssertExpectations(t)
}

func TestRegistryResubscribeReplaces(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	var firstCancel, secondCancel int32
	var firstChange, secondChange storage.CollectionChangeHandler
	feed := new(mockFeed)
	feed.On("WatchCollection", mock.Anything, "zonas", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			firstChange = args.Get(2).(storage.CollectionChangeHandler)
		}).
		Return(countedCancel(&firstCancel), nil).Once()
	feed.On("WatchCollection", mock.Anything, "zonas", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			secondChange = args.Get(2).(storage.CollectionChangeHandler)
		}).
		Return(countedCancel(&secondCancel), nil).Once()

	uut, collector, stop := setupRegistry(t, feed)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	key1, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
	assert.Nil(err)
	key2, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
	assert.Nil(err)
	assert.Equal(key1, key2)

	// Case 0: the previous listener was cancelled and is silenced
	assert.Equal(int32(1), atomic.LoadInt32(&firstCancel))
	assert.Equal(int32(0), atomic.LoadInt32(&secondCancel))
	change := []storage.DocumentChange{
		{Type: storage.ChangeModified, ID: "z1", Data: map[string]interface{}{"nombre_zona": "Sur"}},
	}
	firstChange(change)
	outbox.expectNothing(t)

	// Case 1: the replacement delivers
	secondChange(change)
	msg := outbox.wait(t)
	payload, ok := msg.Data.(common.CollectionUpdatePayload)
	assert.True(ok)
	assert.Equal("modified", payload.Changes[0].Type)
	assert.Equal(
		1.0,
		testutil.ToFloat64(collector.ActiveSubscriptions.WithLabelValues(metrics.KindCollection)),
	)

	// Case 2: unsubscribing cancels only the replacement
	assert.Nil(uut.Unsubscribe(utCtxt, "client-a", key2))
	assert.Equal(int32(1), atomic.LoadInt32(&firstCancel))
	assert.Equal(int32(1), atomic.LoadInt32(&secondCancel))

	feed.AssertExpectations(t)
}

func TestRegistryStoppedEventLoop(t *testing.T) {
	assert := assert.New(t)

	store, err := storage.GetMemoryDocumentStore("registry-ut", 8)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	uut, _, stop := setupRegistry(t, store)
	stop()

	assert.NotNil(uut.RegisterClient(context.Background(), "client-a", newRecordingOutbox()))
	assert.NotNil(uut.DisconnectClient(context.Background(), "client-a"))
}

func TestRegistryAckPrecedesUpdates(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	store, err := storage.GetMemoryDocumentStore("registry-ut", 8)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	uut, _, stop := setupRegistry(t, store)
	defer stop()

	doc, err := store.Add(utCtxt, "rutas", map[string]interface{}{"nombre_ruta": "R1"})
	assert.Nil(err)

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	// Case 0: collection ACK comes before the initial contents
	{
		key, err := uut.SubscribeToCollection(utCtxt, "client-a", "rutas")
		assert.Nil(err)
		msg := outbox.wait(t)
		assert.Equal(common.EventCollectionUpdate, msg.Event)
		assert.Equal(
			[]string{common.EventSubscribed, common.EventCollectionUpdate}, outbox.events(),
		)
		assert.Equal([]string{key}, outbox.ackedKeys())
	}

	// Case 1: document ACK comes before the snapshot
	{
		key, err := uut.SubscribeToDocument(utCtxt, "client-a", "rutas", doc.ID)
		assert.Nil(err)
		msg := outbox.wait(t)
		assert.Equal(common.EventDocumentUpdate, msg.Event)
		assert.Equal([]string{
			common.EventSubscribed,
			common.EventCollectionUpdate,
			common.EventSubscribed,
			common.EventDocumentUpdate,
		}, outbox.events())
		assert.Equal(key, outbox.ackedKeys()[1])
	}
}

func TestRegistryExpiredSubscribe(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	var cancelCount int32
	watching := make(chan bool, 1)
	feed := new(mockFeed)
	feed.On("WatchCollection", mock.Anything, "zonas", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			// Keep the event loop busy
			watching <- true
			time.Sleep(time.Millisecond * 200)
		}).
		Return(countedCancel(&cancelCount), nil).Once()

	uut, _, stop := setupRegistry(t, feed)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))

	slowDone := make(chan error, 1)
	go func() {
		_, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
		slowDone <- err
	}()
	<-watching

	// Case 0: a request which times out while queued is not applied
	{
		lctxt, lcancel := context.WithTimeout(utCtxt, time.Millisecond*50)
		_, err := uut.SubscribeToCollection(lctxt, "client-a", "rutas")
		lcancel()
		assert.Equal(context.DeadlineExceeded, err)
	}
	assert.Nil(<-slowDone)

	keys, err := uut.ClientKeys(utCtxt, "client-a")
	assert.Nil(err)
	assert.Equal([]string{"client-a/zonas"}, keys)
	assert.Equal([]string{"client-a/zonas"}, outbox.ackedKeys())
	feed.AssertNotCalled(t, "WatchCollection", mock.Anything, "rutas", mock.Anything, mock.Anything)
	feed.AssertExpectations(t)
}

func TestRegistryDeliveryMetrics(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	handlers := map[string]storage.CollectionChangeHandler{}
	feed := new(mockFeed)
	for _, collection := range []string{"zonas", "rutas"} {
		name := collection
		feed.On("WatchCollection", mock.Anything, name, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				handlers[name] = args.Get(2).(storage.CollectionChangeHandler)
			}).
			Return(countedCancel(new(int32)), nil).Once()
	}

	uut, collector, stop := setupRegistry(t, feed)
	defer stop()

	outbox := newRecordingOutbox()
	assert.Nil(uut.RegisterClient(utCtxt, "client-a", outbox))
	assert.Nil(uut.RegisterClient(utCtxt, "client-b", closedOutbox{}))
	_, err := uut.SubscribeToCollection(utCtxt, "client-a", "zonas")
	assert.Nil(err)
	_, err = uut.SubscribeToCollection(utCtxt, "client-b", "rutas")
	assert.Nil(err)

	change := []storage.DocumentChange{
		{Type: storage.ChangeAdded, ID: "x", Data: map[string]interface{}{}},
	}
	delivered := func(event string) float64 {
		return testutil.ToFloat64(collector.DeliveredMessages.WithLabelValues(event))
	}

	// Case 0: a queued message is counted
	handlers["zonas"](change)
	outbox.wait(t)
	assert.Equal(1.0, delivered(common.EventCollectionUpdate))
	assert.Equal(1.0, delivered(common.EventSubscribed))

	// Case 1: a message the outbox refused is not counted
	handlers["rutas"](change)
	assert.Equal(1.0, delivered(common.EventCollectionUpdate))

	feed.AssertExpectations(t)
}
