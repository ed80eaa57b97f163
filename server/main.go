/******************************************************************************
 *
 *  Description :
 *
 *    Setup & initialization: config, database connection, authenticators,
 *    the event hub and the monitoring endpoint.
 *
 *****************************************************************************/

package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"runtime"

	jcr "github.com/tinode/jsonco"

	"github.com/hootsocial/hoot/server/feed"
	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/stats"
	"github.com/hootsocial/hoot/server/store"

	_ "github.com/hootsocial/hoot/server/auth/token"
	_ "github.com/hootsocial/hoot/server/db/mongodb"
	_ "github.com/hootsocial/hoot/server/db/mysql"
	_ "github.com/hootsocial/hoot/server/db/postgres"
)

const (
	// currentVersion is the version reported in the log on startup.
	currentVersion = "0.1.0"

	defaultConfigFile = "./hoot.conf"
	defaultListen     = ":6060"
)

// Build timestamp defined by the compiler.
var buildstamp = "undef"

var globals struct {
	hub  *feed.Hub
	feed *feed.Feed
}

type configType struct {
	// Network address of the monitoring endpoint.
	Listen string `json:"listen"`
	// URL path where runtime statistics are exposed, "" or "-" to disable.
	ExpvarPath string `json:"expvar"`
	// Unique id of this instance, 0 through 1023. Feeds the uid generator.
	WorkerID int `json:"worker_id"`
	// Configuration of the persistent storage backend.
	StoreConfig json.RawMessage `json:"store_config"`
	// Configuration of authenticators, a map keyed by scheme name.
	AuthConfig json.RawMessage `json:"auth_config"`
}

func main() {
	logs.Init()
	logs.Info.Printf("Server v%s:%s pid %d started with processes: %d",
		currentVersion, buildstamp, os.Getpid(), runtime.GOMAXPROCS(runtime.NumCPU()))

	configfile := flag.String("config", defaultConfigFile, "Path to config file.")
	listenOn := flag.String("listen", "", "Override address and port to listen on.")
	expvarPath := flag.String("expvar", "", "Override the config-defined path where runtime stats are exposed.")
	flag.Parse()

	logs.Info.Printf("Using config from '%s'", *configfile)

	var config configType
	if file, err := os.Open(*configfile); err != nil {
		logs.Error.Fatalln("Failed to read config file:", err)
	} else {
		jr := jcr.New(file)
		if err = json.NewDecoder(jr).Decode(&config); err != nil {
			switch jerr := err.(type) {
			case *json.UnmarshalTypeError:
				lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
				logs.Error.Fatalf("Unmarshall error in config file in %s at %d:%d (offset %d bytes): %s",
					jerr.Field, lnum, cnum, jerr.Offset, jerr.Error())
			case *json.SyntaxError:
				lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
				logs.Error.Fatalf("Syntax error in config file at %d:%d (offset %d bytes): %s",
					lnum, cnum, jerr.Offset, jerr.Error())
			default:
				logs.Error.Fatalln("Failed to parse config file:", err)
			}
		}
		file.Close()
	}

	if *listenOn != "" {
		config.Listen = *listenOn
	}
	if config.Listen == "" {
		config.Listen = defaultListen
	}
	if *expvarPath != "" {
		config.ExpvarPath = *expvarPath
	}

	if err := store.Store.Open(config.WorkerID, config.StoreConfig); err != nil {
		logs.Error.Fatalln("Failed to connect to DB:", err)
	}
	logs.Info.Println("DB adapter:", store.Store.GetAdapterName())
	defer func() {
		store.Store.Close()
		logs.Info.Println("Closed database connection(s)")
	}()

	if err := store.Store.InitAuthHandlers(config.AuthConfig); err != nil {
		logs.Error.Fatalln("Failed to init auth handlers:", err)
	}
	tokenHdl := store.Store.GetAuthHandler("token")
	if tokenHdl == nil {
		logs.Error.Fatalln("Token authenticator is not registered")
	}

	mux := http.NewServeMux()
	stats.Init(mux, config.ExpvarPath)
	stats.RegisterDbStats(store.Store.DbStats())

	globals.hub = feed.NewHub()
	globals.feed = feed.NewFeed(globals.hub, tokenHdl)

	if err := listenAndServe(config.Listen, mux, signalHandler()); err != nil {
		logs.Error.Fatalln(err)
	}
}
