package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/colabnet/docwatch/common"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

type cmdArgs struct {
	JSONLog     bool
	LogLevel    string   `validate:"required,oneof=debug info warn error"`
	FeedURL     string   `json:"feed_url" validate:"required,url"`
	Collections []string `json:"collections"`
	// Documents entries in the form <collection>/<document ID>
	Documents   []string      `json:"documents" validate:"dive,contains=/"`
	DialTimeout time.Duration `json:"dial_timeout"`
}

var args cmdArgs

func main() {
	var collections, documents cli.StringSlice
	app := &cli.App{
		Usage:       "watch the docwatch realtime change feed",
		Description: "Subscribe to collections and documents, and print every update received",
		Flags: []cli.Flag{
			// LOGGING
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				DefaultText: "false",
				Destination: &args.JSONLog,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "info",
				DefaultText: "info",
				Destination: &args.LogLevel,
				Required:    false,
			},
			// Feed
			&cli.StringFlag{
				Name:        "feed-url",
				Usage:       "Websocket URL of the realtime feed",
				Aliases:     []string{"u"},
				EnvVars:     []string{"FEED_URL"},
				Value:       "ws://127.0.0.1:3000/v1/realtime",
				DefaultText: "ws://127.0.0.1:3000/v1/realtime",
				Destination: &args.FeedURL,
				Required:    false,
			},
			&cli.StringSliceFlag{
				Name:        "collection",
				Usage:       "Collection to watch. May be repeated.",
				Aliases:     []string{"c"},
				Destination: &collections,
				Required:    false,
			},
			&cli.StringSliceFlag{
				Name:        "document",
				Usage:       "Document to watch, as <collection>/<document ID>. May be repeated.",
				Aliases:     []string{"d"},
				Destination: &documents,
				Required:    false,
			},
			&cli.DurationFlag{
				Name:        "dial-timeout",
				Usage:       "Websocket dial timeout",
				EnvVars:     []string{"DIAL_TIMEOUT"},
				Value:       time.Second * 10,
				DefaultText: "10s",
				Destination: &args.DialTimeout,
				Required:    false,
			},
		},
		Action: func(c *cli.Context) error {
			args.Collections = collections.Value()
			args.Documents = documents.Value()
			return startWatch(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.WithError(err).Fatal("Program shutdown")
	}
}

// subscribeFrames build the subscribe frames for the requested watches
func subscribeFrames() ([]interface{}, error) {
	frames := []interface{}{}
	for _, collection := range args.Collections {
		frames = append(frames, map[string]interface{}{
			"event": common.EventSubscribeCollection, "data": collection,
		})
	}
	for _, target := range args.Documents {
		parts := strings.SplitN(target, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("document '%s' is not <collection>/<document ID>", target)
		}
		frames = append(frames, map[string]interface{}{
			"event": common.EventSubscribeDocument,
			"data":  common.SubscribeDocumentRequest{Collection: parts[0], DocumentID: parts[1]},
		})
	}
	return frames, nil
}

func startWatch(c *cli.Context) error {
	wg := sync.WaitGroup{}
	defer wg.Wait()
	opContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Double check the input
	{
		validate := validator.New()
		if err := validate.Struct(&args); err != nil {
			return err
		}
	}

	// Prepare the logging
	if args.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch args.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}

	{
		tmp, _ := json.Marshal(&args)
		log.Debugf("Starting params %s", tmp)
	}

	frames, err := subscribeFrames()
	if err != nil {
		return err
	}

	dialCtxt, dialCancel := context.WithTimeout(opContext, args.DialTimeout)
	defer dialCancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtxt, args.FeedURL, nil)
	if err != nil {
		log.WithError(err).Errorf("Failed to connect to %s", args.FeedURL)
		return err
	}
	defer conn.Close()

	for _, frame := range frames {
		if err := conn.WriteJSON(frame); err != nil {
			log.WithError(err).Error("Failed to send subscribe request")
			return err
		}
	}

	// ------------------------------------------------------------------------

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			var msg struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				if opContext.Err() == nil {
					log.WithError(err).Error("Feed read failure")
				}
				return
			}
			if msg.Event == common.EventError {
				log.Errorf("[%s] %s", msg.Event, msg.Data)
			} else {
				log.Infof("[%s] %s", msg.Event, msg.Data)
			}
		}
	}()

	cc := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(cc, os.Interrupt)

	select {
	case <-cc:
	case <-opContext.Done():
	}
	cancel()

	// Ask the server to end the session, then unblock the reader
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = conn.Close()

	return nil
}
