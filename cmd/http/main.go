package main

import (
	"io"
	"os"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/events"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/server"
)

func main() {
	_ = os.Mkdir("log", 0777)
	logFile, err := os.OpenFile("log/run.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			panic(err)
		}
	}()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "xain-fl",
		Level:  hclog.LevelFromString("DEBUG"),
		Output: io.MultiWriter(os.Stdout, logFile),
	})

	eventBus := events.NewEventBus()

	handler := server.NewHandler(logger, eventBus)

	defaultRouter := mux.NewRouter()
	defaultRouter.HandleFunc("/runs", handler.StartRun).Methods("POST")
	defaultRouter.HandleFunc("/runs/{runId}", handler.GetRun).Methods("GET")
	defaultRouter.HandleFunc("/runs/{runId}", handler.StopRun).Methods("DELETE")

	server.StartHttpServer(logger, defaultRouter, common.SERVER_PORT)
}
