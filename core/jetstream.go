package core

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/colabnet/docwatch/common"
	"github.com/nats-io/nats.go"
)

// NATSConnectParams NATS connection parameter
type NATSConnectParams struct {
	// ServerURI connect to NATS JetStream cluster with URI
	ServerURI string `validate:"required,uri"`
	// ConnectTimeout max time to wait for connection
	ConnectTimeout time.Duration
	// MaxReconnectAttempt on connection failure, max number of reconnect
	// attempt. "-1" means infinite
	MaxReconnectAttempt int
	// ReconnectWait wait duration between reconnect attempts
	ReconnectWait time.Duration
	// OnDisconnectCallback callback on disconnect
	OnDisconnectCallback func(*nats.Conn, error)
	// OnReconnectCallback callback on reconnect
	OnReconnectCallback func(*nats.Conn)
	// OnCloseCallback callback on close
	OnCloseCallback func(*nats.Conn)
}

// ConnectParamsFromConfig build the NATS connection parameters from system config
func ConnectParamsFromConfig(config common.NATSConfig, logTags log.Fields) NATSConnectParams {
	return NATSConnectParams{
		ServerURI:           config.ServerURI,
		ConnectTimeout:      time.Second * time.Duration(config.ConnectTimeout),
		MaxReconnectAttempt: config.Reconnect.MaxAttempts,
		ReconnectWait:       time.Second * time.Duration(config.Reconnect.WaitInterval),
		OnDisconnectCallback: func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).WithFields(logTags).Error("NATS client disconnected")
			} else {
				log.WithFields(logTags).Warn("NATS client disconnected")
			}
		},
		OnReconnectCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Info("NATS client reconnected")
		},
		OnCloseCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Info("NATS client closed")
		},
	}
}

// KeyValueBucketParam parameters of the document bucket
type KeyValueBucketParam struct {
	// Bucket name of the bucket
	Bucket string `validate:"required,alphanum"`
	// History number of historical values kept per key
	History uint8 `validate:"gte=1,lte=64"`
	// Description bucket description when it must be created
	Description string
}

// NatsClient NATS client as document store core
type NatsClient struct {
	common.Component
	nc *nats.Conn
	js nats.JetStreamContext
}

// Close close a JetStream client
func (js NatsClient) Close(ctxt context.Context) {
	if err := js.nc.FlushWithContext(ctxt); err != nil {
		log.WithError(err).WithFields(js.LogTags).Errorf("NATS flush failed")
	}
	js.nc.Close()
	log.WithFields(js.LogTags).Infof("Close NATS client")
}

// JetStream fetch the JetStream client
func (js NatsClient) JetStream() nats.JetStreamContext {
	return js.js
}

// Ready whether the NATS connection is currently usable
func (js NatsClient) Ready() error {
	if status := js.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("NATS connection status %d", status)
	}
	return nil
}

// KeyValue open the document bucket, creating it if it does not exist yet
func (js NatsClient) KeyValue(param KeyValueBucketParam) (nats.KeyValue, error) {
	logTags := js.CopyLogTags(log.Fields{"bucket": param.Bucket})
	kv, err := js.js.KeyValue(param.Bucket)
	if err == nil {
		log.WithFields(logTags).Info("Opened existing KeyValue bucket")
		return kv, nil
	}
	if err != nats.ErrBucketNotFound {
		log.WithError(err).WithFields(logTags).Error("Failed to open KeyValue bucket")
		return nil, err
	}
	kv, err = js.js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      param.Bucket,
		Description: param.Description,
		History:     param.History,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to create KeyValue bucket")
		return nil, err
	}
	log.WithFields(logTags).Info("Created KeyValue bucket")
	return kv, nil
}

// GetJetStream define a new NATS JetStream core
func GetJetStream(param NATSConnectParams) (NatsClient, error) {
	logTags := log.Fields{
		"module":    "core",
		"component": "jetstream-backend",
		"instance":  param.ServerURI,
	}
	// Create the NATS transport
	nc, err := nats.Connect(
		param.ServerURI,
		nats.Timeout(param.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(param.MaxReconnectAttempt),
		nats.ReconnectWait(param.ReconnectWait),
		nats.DisconnectErrHandler(param.OnDisconnectCallback),
		nats.ReconnectHandler(param.OnReconnectCallback),
		nats.ClosedHandler(param.OnCloseCallback),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("NATS client connect failed")
		return NatsClient{}, err
	}

	// Define the JetStream client
	js, err := nc.JetStream()
	if err != nil {
		log.WithError(err).WithFields(logTags).Error(
			"Failed to define JetStream client",
		)
	} else {
		log.WithFields(logTags).Info("Created JetStream client")
	}

	return NatsClient{
		Component: common.Component{LogTags: logTags},
		nc:        nc,
		js:        js,
	}, err
}
