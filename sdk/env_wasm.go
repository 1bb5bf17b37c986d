//go:build wasm

package sdk

import (
	"flag"
	"os"
	"strings"
	"syscall/js"
)

// browserGlobalPresent probes the JS globals on every call. A wasm
// build is not automatically a browser: Node and test harnesses run
// wasm without a window, and harnesses swap globals between cases, so
// the probe must not be cached.
func browserGlobalPresent() bool {
	window := js.Global().Get("window")
	document := js.Global().Get("document")
	return window.Truthy() && document.Truthy()
}

// testHarnessPresent reports whether the process runs under the Go test
// harness, same markers as the native build.
func testHarnessPresent() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	return strings.HasSuffix(os.Args[0], ".test")
}
