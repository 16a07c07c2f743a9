package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/subscription"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server accepts websocket clients and runs one session per connection
type Server interface {
	// ServeWebsocket upgrade the request and operate the session until the client leaves
	ServeWebsocket(w http.ResponseWriter, r *http.Request)
	// ActiveSessions number of sessions currently running
	ActiveSessions() int
	// Shutdown end all sessions and wait for them to finish
	Shutdown()
}

// serverImpl implements Server
type serverImpl struct {
	common.Component
	registry subscription.Registry
	params   SessionParams
	metrics  *metrics.Collector
	validate *validator.Validate
	upgrader websocket.Upgrader
	ctxt     context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	lock     sync.Mutex
	active   int
}

// GetServer define a new websocket session server
func GetServer(
	parent context.Context,
	registry subscription.Registry,
	params SessionParams,
	collector *metrics.Collector,
) (Server, error) {
	if params.OutboundQueueLength < 1 {
		return nil, fmt.Errorf("outbound queue length must be at least 1")
	}
	if params.PingInterval <= 0 || params.PongWait <= params.PingInterval {
		return nil, fmt.Errorf(
			"pong wait %s must exceed a positive ping interval %s", params.PongWait, params.PingInterval,
		)
	}
	logTags := log.Fields{"module": "realtime", "component": "server"}
	ctxt, cancel := context.WithCancel(parent)
	return &serverImpl{
		Component: common.Component{LogTags: logTags},
		registry:  registry,
		params:    params,
		metrics:   collector,
		validate:  common.GetValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctxt:   ctxt,
		cancel: cancel,
	}, nil
}

// ServeWebsocket upgrade the request and operate the session until the client leaves
func (s *serverImpl) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.ctxt.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error
		log.WithError(err).WithFields(s.LogTags).Error("Websocket upgrade failed")
		return
	}
	clientID := uuid.NewString()
	log.WithFields(s.LogTags).Debugf("Accepted %s from %s", clientID, r.RemoteAddr)

	s.lock.Lock()
	s.active++
	s.lock.Unlock()
	s.sessions.Add(1)
	defer func() {
		s.lock.Lock()
		s.active--
		s.lock.Unlock()
		s.sessions.Done()
	}()

	newSession(s.ctxt, clientID, conn, s.registry, s.params, s.metrics, s.validate).run()
}

// ActiveSessions number of sessions currently running
func (s *serverImpl) ActiveSessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.active
}

// Shutdown end all sessions and wait for them to finish
func (s *serverImpl) Shutdown() {
	log.WithFields(s.LogTags).Info("Closing all realtime sessions")
	s.cancel()
	s.sessions.Wait()
}
