// Copyright 2021-2022 The httpmq Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/apis"
	"github.com/colabnet/docwatch/catalog"
	"github.com/colabnet/docwatch/common"
	"github.com/colabnet/docwatch/core"
	"github.com/colabnet/docwatch/metrics"
	"github.com/colabnet/docwatch/realtime"
	"github.com/colabnet/docwatch/storage"
	"github.com/colabnet/docwatch/subscription"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// DefineDocumentStore define the document store selected by the config
//
// natsClient is only required by the "jetstream" backend.
func DefineDocumentStore(
	config common.StoreConfig, instance string, natsClient *core.NatsClient,
) (storage.DocumentStore, error) {
	switch config.Backend {
	case "memory":
		return storage.GetMemoryDocumentStore(instance, config.WatchBuffer)
	case "jetstream":
		if natsClient == nil {
			return nil, fmt.Errorf("jetstream document store requires a NATS client")
		}
		kv, err := natsClient.KeyValue(core.KeyValueBucketParam{
			Bucket:      config.Bucket,
			History:     config.History,
			Description: "docwatch collections",
		})
		if err != nil {
			return nil, err
		}
		return storage.GetJetStreamDocumentStore(kv, natsClient.Ready)
	default:
		return nil, fmt.Errorf("unknown document store backend %s", config.Backend)
	}
}

// DefineRouter build the HTTP router serving the catalog and the realtime feed
func DefineRouter(
	config *common.SystemConfig,
	catalogHandler apis.APIRestCatalogHandler,
	realtimeServer realtime.Server,
) *mux.Router {
	router := mux.NewRouter()
	mainRouter := apis.RegisterPathPrefix(router, config.API.Endpoints.PathPrefix, nil)

	// The realtime route is more specific than the catalog routes
	apis.RegisterRealtimeRoute(mainRouter, realtimeServer)
	apis.RegisterCatalogRoutes(mainRouter, catalogHandler)

	// Add logging
	router.Use(func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(catalogHandler, next)
	})
	return router
}

// realtimeStack the subscription registry event loop and the websocket server using it
type realtimeStack struct {
	server realtime.Server
	tp     common.TaskProcessor
	wg     sync.WaitGroup
}

// defineRealtimeStack build the registry and the realtime server, and start the registry loop
//
// The registry loop is not bound to the runtime context: sessions ended by the runtime context
// still need it to release their subscriptions. Call stop to shut both down in order.
func defineRealtimeStack(
	runtimeContext context.Context,
	config common.RealtimeConfig,
	feed storage.ChangeFeed,
	collector *metrics.Collector,
) (*realtimeStack, error) {
	stack := &realtimeStack{}
	tp, err := common.GetNewTaskProcessorInstance(
		context.Background(), "subscription-registry", config.RegistryQueueLength,
	)
	if err != nil {
		return nil, err
	}
	registry, err := subscription.DefineRegistry(feed, tp, collector)
	if err != nil {
		return nil, err
	}
	realtimeServer, err := realtime.GetServer(
		runtimeContext, registry, realtime.SessionParamsFromConfig(config), collector,
	)
	if err != nil {
		return nil, err
	}
	if err := tp.StartEventLoop(&stack.wg); err != nil {
		realtimeServer.Shutdown()
		return nil, err
	}
	stack.server = realtimeServer
	stack.tp = tp
	return stack, nil
}

// stop end every session, then the registry loop
func (s *realtimeStack) stop() {
	s.server.Shutdown()
	if err := s.tp.StopEventLoop(); err != nil {
		log.WithError(err).Error("Registry event loop stop failure")
	}
	s.wg.Wait()
}

// RunServer run the docwatch server until the runtime context ends
func RunServer(
	runtimeContext context.Context,
	config *common.SystemConfig,
	instance string,
	natsClient *core.NatsClient,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "server",
		"instance":  instance,
	}

	store, err := DefineDocumentStore(config.Store, instance, natsClient)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define document store")
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).WithFields(logTags).Error("Document store close failure")
		}
	}()

	collector := metrics.NewWithDefaults()

	stack, err := defineRealtimeStack(runtimeContext, config.Realtime, store, collector)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define realtime stack")
		return err
	}
	defer stack.stop()
	realtimeServer := stack.server

	entities, err := catalog.GetCatalog(store, time.Now)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define catalog")
		return err
	}
	httpHandler, err := apis.GetAPIRestCatalogHandler(
		entities,
		store,
		&config.API.HTTPSetting,
		time.Second*time.Duration(config.Store.OperationTimeout),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define HTTP handler")
		return err
	}

	// -------------------------------------------------------------------
	// Start the HTTP servers

	serverCfg := config.API.HTTPSetting.Server
	serverListen := fmt.Sprintf("%s:%d", serverCfg.ListenOn, serverCfg.Port)
	httpSrv := &http.Server{
		Addr:         serverListen,
		WriteTimeout: time.Second * time.Duration(serverCfg.WriteTimeout),
		ReadTimeout:  time.Second * time.Duration(serverCfg.ReadTimeout),
		IdleTimeout:  time.Second * time.Duration(serverCfg.IdleTimeout),
		Handler:      h2c.NewHandler(DefineRouter(config, httpHandler, realtimeServer), &http2.Server{}),
	}
	servers := []*http.Server{httpSrv}

	if config.Metrics.Enabled {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle(config.Metrics.Path, collector.Handler()).Methods("GET")
		servers = append(servers, &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Metrics.ListenOn, config.Metrics.Port),
			WriteTimeout: time.Second * 60,
			ReadTimeout:  time.Second * 60,
			Handler:      metricsRouter,
		})
	}

	group, groupCtxt := errgroup.WithContext(runtimeContext)
	for _, srv := range servers {
		server := srv
		group.Go(func() error {
			log.WithFields(logTags).Infof("Started HTTP server on http://%s", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).WithFields(logTags).Errorf("HTTP Server %s Failure", server.Addr)
				return err
			}
			return nil
		})
	}

	// ============================================================================

	// Either the runtime context ends, or one server failed
	<-groupCtxt.Done()

	// Stop the HTTP servers
	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(ctx); err != nil {
				log.WithError(err).WithFields(logTags).Error("Failure during HTTP shutdown")
			}
		}
	}

	return group.Wait()
}
