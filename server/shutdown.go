/******************************************************************************
 *
 *  Description :
 *
 *    Graceful shutdown of the server.
 *
 *****************************************************************************/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/stats"
)

// Time given to the HTTP server to finish in-flight requests.
const shutdownTimeout = 5 * time.Second

func signalHandler() <-chan bool {
	stop := make(chan bool)

	signchan := make(chan os.Signal, 1)
	signal.Notify(signchan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		// Wait for a signal. Don't care which signal it is.
		sig := <-signchan
		logs.Info.Printf("Signal received: '%s', shutting down", sig)
		stop <- true
	}()

	return stop
}

func listenAndServe(addr string, mux *http.ServeMux, stop <-chan bool) error {
	shuttingDown := false

	httpdone := make(chan bool)

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logs.Info.Printf("Listening for HTTP connections on [%s]", server.Addr)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			if shuttingDown {
				logs.Info.Println("HTTP server: stopped")
			} else {
				logs.Error.Println("HTTP server: failed", err)
			}
		}
		httpdone <- true
	}()

	// Wait for either a termination signal or a server error.
loop:
	for {
		select {
		case <-stop:
			// Close the Accept-ing socket so no new connections are possible,
			// let in-flight requests finish.
			shuttingDown = true
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := server.Shutdown(ctx)
			cancel()
			if err != nil {
				return err
			}

			<-httpdone

			// Shutdown the hub. The hub shuts down topics, topics close
			// their subscriptions.
			globals.hub.Shutdown()

			stats.Shutdown()

			break loop

		case <-httpdone:
			break loop
		}
	}
	return nil
}
