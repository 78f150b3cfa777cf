// Command txengine replays transaction records into client accounts.
//
//	txengine transactions.csv > accounts.csv
//
// Subcommands serve the engine over HTTP, consume records from Kafka, manage
// the snapshot schema and mint API tokens.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
