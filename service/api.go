package service

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/threadlyhq/replybot/processor"
	"github.com/threadlyhq/replybot/webhook"
)

// API is the HTTP surface of the bot: the webhook receiver, the
// scheduler-invoked queue endpoints and a basic healthcheck.
type API struct {
	Server http.Server
}

func NewAPI(port int, webhookHandler *webhook.Handler, queueHandler *processor.Handler) API {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", webhookHandler.HandleWebhook)
	mux.HandleFunc("/queue/process", queueHandler.HandleProcess)
	mux.HandleFunc("/queue/stats", queueHandler.HandleStats)
	mux.HandleFunc("/queue/retry", queueHandler.HandleRetry)
	mux.Handle("/healthz", handleHealthcheck())
	return API{
		Server: http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", port),
			Handler: mux,
		},
	}
}

func handleHealthcheck() http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			log.Debug("received healthcheck request")
			// This will have a status of 200
			fmt.Fprintf(w, "all good in the hood")
		},
	)
}
