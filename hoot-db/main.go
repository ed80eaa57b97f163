// Command hoot-db initializes the database and optionally fills it with
// sample data.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	jcr "github.com/tinode/jsonco"

	"github.com/hootsocial/hoot/server/store"

	_ "github.com/hootsocial/hoot/server/auth/token"
	_ "github.com/hootsocial/hoot/server/db/mongodb"
	_ "github.com/hootsocial/hoot/server/db/mysql"
	_ "github.com/hootsocial/hoot/server/db/postgres"
)

type configType struct {
	StoreConfig json.RawMessage `json:"store_config"`
	AuthConfig  json.RawMessage `json:"auth_config"`
}

func main() {
	reset := flag.Bool("reset", false, "force database reset")
	noInit := flag.Bool("no_init", false, "check that database exists but don't create if missing")
	datafile := flag.String("data", "", "name of file with sample data to load")
	conffile := flag.String("config", "./hoot.conf", "config of the database connection")

	flag.Parse()

	var data Data
	if *datafile != "" && *datafile != "-" {
		raw, err := os.ReadFile(*datafile)
		if err != nil {
			log.Fatalln("Failed to read sample data file:", err)
		}
		if err = json.Unmarshal(raw, &data); err != nil {
			log.Fatalln("Failed to parse sample data:", err)
		}
	}

	var config configType
	if file, err := os.Open(*conffile); err != nil {
		log.Fatalln("Failed to read config file:", err)
	} else {
		jr := jcr.New(file)
		if err = json.NewDecoder(jr).Decode(&config); err != nil {
			switch jerr := err.(type) {
			case *json.UnmarshalTypeError:
				lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
				log.Fatalf("Unmarshall error in config file in %s at %d:%d (offset %d bytes): %s",
					jerr.Field, lnum, cnum, jerr.Offset, jerr.Error())
			case *json.SyntaxError:
				lnum, cnum, _ := jr.LineAndChar(jerr.Offset)
				log.Fatalf("Syntax error in config file at %d:%d (offset %d bytes): %s",
					lnum, cnum, jerr.Offset, jerr.Error())
			default:
				log.Fatalln("Failed to parse config file:", err)
			}
		}
		file.Close()
	}

	err := store.Store.Open(1, config.StoreConfig)
	defer store.Store.Close()

	log.Println("Database adapter:", store.Store.GetAdapterName())

	if err != nil {
		if strings.Contains(err.Error(), "Database not initialized") {
			if *noInit {
				log.Fatalln("Database not found.")
			}
			log.Println("Database not found. Creating.")
		} else {
			log.Fatalln("Failed to init DB adapter:", err)
		}
	} else if !*reset {
		log.Println("Database exists. Use --reset to reset.")
		os.Exit(0)
	}

	if err = store.Store.InitDb(config.StoreConfig, *reset); err != nil {
		log.Fatalln("Failed to init DB:", err)
	}
	var action string
	if *reset {
		action = "reset"
	} else {
		action = "initialized"
	}
	log.Println("Database", action)

	if len(data.Users) > 0 {
		if err = store.Store.InitAuthHandlers(config.AuthConfig); err != nil {
			log.Fatalln("Failed to init auth handlers:", err)
		}
		genDb(&data)
	} else {
		log.Println("No sample data provided, done.")
	}
}
