// Package monitor serves live runtime statistics (heap, goroutines, GC) while
// long traces are being simulated.
//
// Once launched the statistics page is available at
//
//	http://<address>/debug/statsview
package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is used when Launch is given an empty address.
const DefaultAddress = "localhost:12600"

const url = "/debug/statsview"

// Launch starts the statistics server on a new goroutine and writes its URL
// to output. The returned function stops the server.
func Launch(output io.Writer, address string) (stop func()) {
	if address == "" {
		address = DefaultAddress
	}

	viewer.SetConfiguration(viewer.WithAddr(address))
	mgr := statsview.New()
	go mgr.Start()

	fmt.Fprintf(output, "stats server available at %s%s\n", address, url)

	return func() { mgr.Stop() }
}

// URL returns the statistics page for an address given to Launch.
func URL(address string) string {
	if address == "" {
		address = DefaultAddress
	}
	return "http://" + address + url
}
