package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/subscription"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// SessionParams websocket session parameters
type SessionParams struct {
	// WriteTimeout max duration for writing one frame
	WriteTimeout time.Duration
	// PingInterval interval between keep-alive pings
	PingInterval time.Duration
	// PongWait max silence from the client before the session is dropped
	PongWait time.Duration
	// OutboundQueueLength number of messages queued before delivery blocks
	OutboundQueueLength int
	// ReadLimit max size of one inbound frame
	ReadLimit int64
	// RegistryTimeout max duration of one registry call made on behalf of the client
	RegistryTimeout time.Duration
}

// SessionParamsFromConfig build the session parameters from system config
func SessionParamsFromConfig(config common.RealtimeConfig) SessionParams {
	return SessionParams{
		WriteTimeout:        time.Second * time.Duration(config.WriteTimeout),
		PingInterval:        time.Second * time.Duration(config.PingInterval),
		PongWait:            time.Second * time.Duration(config.PongWait),
		OutboundQueueLength: config.OutboundQueueLength,
		ReadLimit:           config.ReadLimit,
		RegistryTimeout:     time.Second * time.Duration(config.RegistryTimeout),
	}
}

// session one connected websocket client
//
// The read loop runs on the goroutine calling run. All frames except pings are written by a
// single writer goroutine draining the outbound queue.
type session struct {
	common.Component
	clientID string
	conn     *websocket.Conn
	registry subscription.Registry
	params   SessionParams
	metrics  *metrics.Collector
	validate *validator.Validate
	outbound chan common.OutboundMessage
	ctxt     context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func newSession(
	parent context.Context,
	clientID string,
	conn *websocket.Conn,
	registry subscription.Registry,
	params SessionParams,
	collector *metrics.Collector,
	validate *validator.Validate,
) *session {
	logTags := log.Fields{
		"module": "realtime", "component": "session", "instance": clientID,
	}
	ctxt, cancel := context.WithCancel(parent)
	return &session{
		Component: common.Component{LogTags: logTags},
		clientID:  clientID,
		conn:      conn,
		registry:  registry,
		params:    params,
		metrics:   collector,
		validate:  validate,
		outbound:  make(chan common.OutboundMessage, params.OutboundQueueLength),
		ctxt:      ctxt,
		cancel:    cancel,
	}
}

// Deliver queue a message for the client. It blocks only while the queue is full and the
// session is alive.
func (s *session) Deliver(msg common.OutboundMessage) bool {
	if s.ctxt.Err() != nil {
		s.metrics.MessageDropped()
		return false
	}
	select {
	case s.outbound <- msg:
		return true
	case <-s.ctxt.Done():
		s.metrics.MessageDropped()
		return false
	}
}

// run operate the session until the client goes away or the parent context ends
func (s *session) run() {
	defer s.conn.Close()
	defer s.cancel()

	if err := s.registry.RegisterClient(s.ctxt, s.clientID, s); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Unable to register client")
		return
	}
	log.WithFields(s.LogTags).Info("Client connected")

	s.wg.Add(1)
	go s.writeLoop()

	pinger, err := common.GetIntervalTimerInstance(s.ctxt, &s.wg, s.LogTags)
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Unable to define keep-alive timer")
	} else if err := pinger.Start(s.params.PingInterval, s.ping, false); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Unable to start keep-alive timer")
	}

	s.Deliver(common.OutboundMessage{
		Event: common.EventConnected, Data: common.ConnectedPayload{ClientID: s.clientID},
	})

	s.readLoop()

	// Stop delivery first so no store goroutine stays blocked on a full queue
	s.cancel()
	cleanupCtxt, cleanupCancel := context.WithTimeout(context.Background(), s.params.RegistryTimeout)
	defer cleanupCancel()
	if err := s.registry.DisconnectClient(cleanupCtxt, s.clientID); err != nil {
		log.WithError(err).WithFields(s.LogTags).Error("Failed to clean up client subscriptions")
	}
	if pinger != nil {
		_ = pinger.Stop()
	}
	s.wg.Wait()
	log.WithFields(s.LogTags).Info("Client disconnected")
}

func (s *session) ping() error {
	return s.conn.WriteControl(
		websocket.PingMessage, nil, time.Now().Add(s.params.WriteTimeout),
	)
}

func (s *session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctxt.Done():
			// Closing also unblocks the read loop when the server is shutting down
			_ = s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.params.WriteTimeout),
			)
			_ = s.conn.Close()
			return
		case msg := <-s.outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.params.WriteTimeout))
			if err := s.conn.WriteJSON(&msg); err != nil {
				log.WithError(err).WithFields(s.LogTags).Errorf("Failed to send %s", msg)
				s.cancel()
				// Unblock the read loop
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *session) readLoop() {
	s.conn.SetReadLimit(s.params.ReadLimit)
	extendDeadline := func() {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.params.PongWait))
	}
	extendDeadline()
	s.conn.SetPongHandler(func(string) error {
		extendDeadline()
		return nil
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
			) {
				log.WithError(err).WithFields(s.LogTags).Error("Client connection failed")
			}
			return
		}
		extendDeadline()
		var frame common.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.Deliver(common.NewErrorMessage("malformed frame: %s", err.Error()))
			continue
		}
		s.handleFrame(frame)
	}
}

// handleFrame act on one inbound frame. Failures are reported back to the client.
func (s *session) handleFrame(frame common.InboundFrame) {
	if err := s.validate.Struct(&frame); err != nil {
		s.Deliver(common.NewErrorMessage("invalid frame: %s", err.Error()))
		return
	}
	ctxt, cancel := context.WithTimeout(s.ctxt, s.params.RegistryTimeout)
	defer cancel()

	switch frame.Event {
	case common.EventSubscribeCollection:
		var collection string
		if err := json.Unmarshal(frame.Data, &collection); err != nil {
			s.Deliver(common.NewErrorMessage(
				"%s expects a collection name: %s", frame.Event, err.Error(),
			))
			return
		}
		_, err := s.registry.SubscribeToCollection(ctxt, s.clientID, collection)
		s.reportSubscribeFailure(frame.Event, err)

	case common.EventSubscribeDocument:
		var request common.SubscribeDocumentRequest
		if err := json.Unmarshal(frame.Data, &request); err != nil {
			s.Deliver(common.NewErrorMessage(
				"%s expects {collectionName, documentId}: %s", frame.Event, err.Error(),
			))
			return
		}
		if err := s.validate.Struct(&request); err != nil {
			s.Deliver(common.NewErrorMessage("invalid %s request: %s", frame.Event, err.Error()))
			return
		}
		_, err := s.registry.SubscribeToDocument(
			ctxt, s.clientID, request.Collection, request.DocumentID,
		)
		s.reportSubscribeFailure(frame.Event, err)

	case common.EventUnsubscribe:
		var key string
		if err := json.Unmarshal(frame.Data, &key); err != nil {
			s.Deliver(common.NewErrorMessage(
				"%s expects a subscription key: %s", frame.Event, err.Error(),
			))
			return
		}
		if err := s.registry.Unsubscribe(ctxt, s.clientID, key); err != nil {
			log.WithError(err).WithFields(s.LogTags).Errorf("Unsubscribe %s failed", key)
			s.Deliver(common.NewErrorMessage("unsubscribe %s failed: %s", key, err.Error()))
			return
		}
		s.Deliver(common.OutboundMessage{
			Event: common.EventUnsubscribed, Data: common.SubscriptionAckPayload{Key: key},
		})

	default:
		s.Deliver(common.NewErrorMessage("unknown event '%s'", frame.Event))
	}
}

// reportSubscribeFailure the registry queues the "subscribed" ACK itself, ahead of the first
// update, so only failures are answered here
func (s *session) reportSubscribeFailure(event string, err error) {
	if err == nil {
		return
	}
	log.WithError(err).WithFields(s.LogTags).Errorf("%s failed", event)
	s.Deliver(common.NewErrorMessage("%s failed: %s", event, err.Error()))
}
