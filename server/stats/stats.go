// Package stats tracks server statistics and exposes them through expvar.
// The stats updates happen in a separate go routine to avoid
// locking on main logic routines.
package stats

import (
	"expvar"
	"net/http"
	"runtime"
	"time"

	"github.com/hootsocial/hoot/server/logs"
)

type varUpdate struct {
	// Name of the variable to update.
	varname string
	// Integer value to publish.
	count int64
	// Treat the count as an increment as opposite to the final value.
	inc bool
}

var update chan *varUpdate

// Init initializes stats reporting through expvar.
func Init(mux *http.ServeMux, path string) {
	if path == "" || path == "-" {
		return
	}

	mux.Handle(path, expvar.Handler())
	update = make(chan *varUpdate, 1024)

	start := time.Now()
	expvar.Publish("Uptime", expvar.Func(func() interface{} {
		return time.Since(start).Seconds()
	}))
	expvar.Publish("NumGoroutines", expvar.Func(func() interface{} {
		return runtime.NumGoroutine()
	}))

	go updater()

	logs.Info.Printf("stats: variables exposed at '%s'", path)
}

// RegisterInt registers an integer variable. Repeated registrations of the
// same name are ignored.
func RegisterInt(name string) {
	if expvar.Get(name) == nil {
		expvar.Publish(name, new(expvar.Int))
	}
}

// RegisterDbStats registers a callback returning the db connection pool stats object.
func RegisterDbStats(f func() interface{}) {
	if f != nil {
		expvar.Publish("DbStats", expvar.Func(f))
	}
}

// Set publishes a new value of an int variable, asynchronously.
func Set(name string, val int64) {
	if update != nil {
		select {
		case update <- &varUpdate{name, val, false}:
		default:
		}
	}
}

// Inc publishes an increment (decrement) to an int variable, asynchronously.
func Inc(name string, val int) {
	if update != nil {
		select {
		case update <- &varUpdate{name, int64(val), true}:
		default:
		}
	}
}

// Shutdown stops publishing stats.
func Shutdown() {
	if update != nil {
		update <- nil
	}
}

// The go routine which actually publishes stats updates.
func updater() {
	for upd := range update {
		if upd == nil {
			update = nil
			// Don't care to close the channel.
			break
		}

		// Handle var update
		if ev := expvar.Get(upd.varname); ev != nil {
			// Intentional panic if the ev is not *expvar.Int.
			intvar := ev.(*expvar.Int)
			if upd.inc {
				intvar.Add(upd.count)
			} else {
				intvar.Set(upd.count)
			}
		} else {
			panic("stats: update to unknown variable " + upd.varname)
		}
	}

	logs.Info.Println("stats: shutdown")
}
