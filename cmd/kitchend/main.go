// kitchend is a development stand-in for the kitchen backend service the
// display core polls. It persists tickets in sqlite and serves the same
// REST surface, seeded with stations and a few open orders.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
)

var (
	port   = flag.Int("port", 8081, "Listen port")
	dbPath = flag.String("db", "kitchend.db", "Path to the sqlite database")
)

func main() {
	flag.Parse()

	db, err := openDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	auth := &AuthConfig{Secret: os.Getenv("KITCHEND_JWT_SECRET")}
	server := NewKitchenServer(db, auth)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Starting kitchend on %s (db %s)", addr, *dbPath)
	if err := http.ListenAndServe(addr, server.Router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
