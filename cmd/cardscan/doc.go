// Command cardscan is the command line interface for the card scan
// resolution engine. It records scan attempts, runs resolution batches
// against the catalog, maintains the visual index, and exports completed
// scans for collection tracking.
package main
