//go:build !wasm

package sdk

import (
	"flag"
	"os"
	"strings"
)

// browserGlobalPresent reports whether a browser document scope is
// reachable. Native builds never have one, so resolution here always
// lands on an absolute base.
func browserGlobalPresent() bool {
	return false
}

// testHarnessPresent reports whether the process runs under the Go test
// harness. The harness registers the test.v flag before user code runs
// and names the binary with a .test suffix; either marker is enough.
func testHarnessPresent() bool {
	if flag.Lookup("test.v") != nil {
		return true
	}
	return strings.HasSuffix(os.Args[0], ".test")
}
