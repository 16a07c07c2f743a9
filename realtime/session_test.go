package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/storage"
	"github.com/colabnet/docwatch/subscription"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type testFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	var frame testFrame
	assert.Nil(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))
	assert.Nil(t, conn.ReadJSON(&frame))
	return frame
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	serialized, err := json.Marshal(data)
	assert.Nil(t, err)
	assert.Nil(t, conn.WriteJSON(&testFrame{Event: event, Data: serialized}))
}

func TestRealtimeSession(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtxt, utCancel := context.WithCancel(context.Background())
	defer utCancel()
	wg := sync.WaitGroup{}
	defer wg.Wait()

	store, err := storage.GetMemoryDocumentStore("realtime-ut", 16)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	tp, err := common.GetNewTaskProcessorInstance(utCtxt, "realtime-ut", 16)
	assert.Nil(err)
	registry, err := subscription.DefineRegistry(store, tp, metrics.New(prometheus.NewRegistry()))
	assert.Nil(err)
	assert.Nil(tp.StartEventLoop(&wg))
	defer func() {
		assert.Nil(tp.StopEventLoop())
	}()

	// Case 0: bad parameters
	{
		_, err := GetServer(utCtxt, registry, SessionParams{
			OutboundQueueLength: 4, PingInterval: time.Second, PongWait: time.Second,
		}, nil)
		assert.NotNil(err)
	}

	uut, err := GetServer(utCtxt, registry, SessionParams{
		WriteTimeout:        time.Second,
		PingInterval:        time.Millisecond * 100,
		PongWait:            time.Second * 5,
		OutboundQueueLength: 16,
		ReadLimit:           4096,
		RegistryTimeout:     time.Second,
	}, nil)
	assert.Nil(err)
	testServer := httptest.NewServer(http.HandlerFunc(uut.ServeWebsocket))
	defer testServer.Close()
	defer uut.Shutdown()

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.Nil(err)

	// Case 1: greeting carries the client ID
	var clientID string
	{
		frame := readFrame(t, conn)
		assert.Equal(common.EventConnected, frame.Event)
		var payload common.ConnectedPayload
		assert.Nil(json.Unmarshal(frame.Data, &payload))
		assert.NotEmpty(payload.ClientID)
		clientID = payload.ClientID
	}
	assert.Equal(1, uut.ActiveSessions())

	// Case 2: subscribe to a collection, then receive a change
	collectionKey := subscription.CollectionKey(clientID, "colaboradores")
	{
		sendFrame(t, conn, common.EventSubscribeCollection, "colaboradores")
		frame := readFrame(t, conn)
		assert.Equal(common.EventSubscribed, frame.Event)
		var ack common.SubscriptionAckPayload
		assert.Nil(json.Unmarshal(frame.Data, &ack))
		assert.Equal(collectionKey, ack.Key)

		doc, err := store.Add(utCtxt, "colaboradores", map[string]interface{}{"nombre": "Ana"})
		assert.Nil(err)
		frame = readFrame(t, conn)
		assert.Equal(common.EventCollectionUpdate, frame.Event)
		var update common.CollectionUpdatePayload
		assert.Nil(json.Unmarshal(frame.Data, &update))
		assert.Contains(string(frame.Data), `"collectionName":"colaboradores"`)
		assert.Equal("colaboradores", update.Collection)
		assert.Len(update.Changes, 1)
		assert.Equal("added", update.Changes[0].Type)
		assert.Equal(doc.ID, update.Changes[0].ID)
	}

	// Case 3: subscribe to a missing document; the ACK comes before the snapshot
	{
		assert.Nil(conn.WriteMessage(websocket.TextMessage, []byte(
			`{"event":"subscribe_document","data":{"collectionName":"zonas","documentId":"z1"}}`,
		)))
		ack := readFrame(t, conn)
		assert.Equal(common.EventSubscribed, ack.Event)
		assert.Contains(string(ack.Data), subscription.DocumentKey(clientID, "zonas", "z1"))
		update := readFrame(t, conn)
		assert.Equal(common.EventDocumentUpdate, update.Event)
		var payload map[string]interface{}
		assert.Nil(json.Unmarshal(update.Data, &payload))
		assert.Equal("zonas", payload["collectionName"])
		assert.Equal("z1", payload["documentId"])
		assert.Equal(false, payload["exists"])
		_, hasData := payload["data"]
		assert.False(hasData)
	}

	// Case 4: bad requests are answered with error messages
	{
		sendFrame(t, conn, "launch_rockets", nil)
		assert.Equal(common.EventError, readFrame(t, conn).Event)

		sendFrame(t, conn, common.EventSubscribeCollection, 42)
		assert.Equal(common.EventError, readFrame(t, conn).Event)

		sendFrame(t, conn, common.EventSubscribeDocument, map[string]string{"collectionName": "zonas"})
		assert.Equal(common.EventError, readFrame(t, conn).Event)

		sendFrame(t, conn, common.EventSubscribeCollection, "bad/name")
		assert.Equal(common.EventError, readFrame(t, conn).Event)

		assert.Nil(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		assert.Equal(common.EventError, readFrame(t, conn).Event)
	}

	// Case 5: unsubscribe
	{
		sendFrame(t, conn, common.EventUnsubscribe, collectionKey)
		frame := readFrame(t, conn)
		assert.Equal(common.EventUnsubscribed, frame.Event)
		keys, err := registry.ClientKeys(utCtxt, clientID)
		assert.Nil(err)
		assert.Equal([]string{subscription.DocumentKey(clientID, "zonas", "z1")}, keys)
	}

	// Case 6: closing the socket disconnects the client
	assert.Nil(conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))
	assert.Nil(conn.Close())
	assert.Eventually(func() bool {
		return uut.ActiveSessions() == 0
	}, time.Second*2, time.Millisecond*20)
	keys, err := registry.ClientKeys(utCtxt, clientID)
	assert.Nil(err)
	assert.Empty(keys)
}

func TestRealtimeServerShutdown(t *testing.T) {
	assert := assert.New(t)

	utCtxt, utCancel := context.WithCancel(context.Background())
	defer utCancel()
	wg := sync.WaitGroup{}
	defer wg.Wait()

	store, err := storage.GetMemoryDocumentStore("realtime-ut", 16)
	assert.Nil(err)
	defer func() {
		assert.Nil(store.Close())
	}()
	tp, err := common.GetNewTaskProcessorInstance(utCtxt, "realtime-ut", 16)
	assert.Nil(err)
	registry, err := subscription.DefineRegistry(store, tp, nil)
	assert.Nil(err)
	assert.Nil(tp.StartEventLoop(&wg))
	defer func() {
		assert.Nil(tp.StopEventLoop())
	}()

	uut, err := GetServer(utCtxt, registry, SessionParams{
		WriteTimeout:        time.Second,
		PingInterval:        time.Second,
		PongWait:            time.Second * 5,
		OutboundQueueLength: 4,
		ReadLimit:           4096,
		RegistryTimeout:     time.Second,
	}, nil)
	assert.Nil(err)
	testServer := httptest.NewServer(http.HandlerFunc(uut.ServeWebsocket))
	defer testServer.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(testServer.URL, "http"), nil)
	assert.Nil(err)
	defer conn.Close()
	var clientID string
	{
		frame := readFrame(t, conn)
		var payload common.ConnectedPayload
		assert.Nil(json.Unmarshal(frame.Data, &payload))
		clientID = payload.ClientID
	}
	sendFrame(t, conn, common.EventSubscribeCollection, "rutas")
	assert.Equal(common.EventSubscribed, readFrame(t, conn).Event)

	// Case 0: shutdown ends the session and releases its subscriptions
	uut.Shutdown()
	assert.Equal(0, uut.ActiveSessions())
	keys, err := registry.ClientKeys(utCtxt, clientID)
	assert.Nil(err)
	assert.Empty(keys)

	// Case 1: new connections are refused
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(testServer.URL, "http"), nil)
	assert.NotNil(err)
	if resp != nil {
		assert.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestSessionDeliverAfterEnd(t *testing.T) {
	assert := assert.New(t)

	collector := metrics.New(prometheus.NewRegistry())
	uut := newSession(
		context.Background(), "client-a", nil, nil, SessionParams{OutboundQueueLength: 4}, collector, nil,
	)

	// Case 0: queued while running
	assert.True(uut.Deliver(common.OutboundMessage{Event: common.EventSubscribed}))
	assert.Len(uut.outbound, 1)

	// Case 1: dropped once the session ended, even with room in the queue
	uut.cancel()
	assert.False(uut.Deliver(common.OutboundMessage{Event: common.EventCollectionUpdate}))
	assert.Len(uut.outbound, 1)
	assert.Equal(1.0, testutil.ToFloat64(collector.DroppedMessages))
}
