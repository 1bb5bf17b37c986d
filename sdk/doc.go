// Package sdk provides the Go client for the Emerald Market API.
//
// The same client code runs in three very different places: server-side
// Go services, browser tabs via WebAssembly, and test binaries. Each of
// those needs a different API base address, and getting the choice
// wrong is not a cosmetic bug. A server process that resolves a
// relative address has nothing to resolve it against; a test that hits
// a production base is worse. The package therefore routes every
// request URL through a Resolver that re-detects the runtime context on
// each call:
//
//  1. Server-side execution (no browser globals) always uses the
//     absolute fallback base URL, whatever environment is declared.
//  2. Otherwise a detected test harness uses the test base URL.
//  3. Otherwise the declared environment (MARKET_ENV) picks between
//     development, production and test bases. The production base may
//     be empty, producing relative addresses the browser resolves
//     against the document.
//
// Nothing in the detection is cached between calls, and a base that
// produces a malformed address fails fast with an
// AddressConstructionError before any network I/O.
//
// Basic usage:
//
//	client, err := sdk.NewClient(sdk.DefaultConfig().
//	    WithFallbackBaseURL("https://api.emerald.example"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	listing, err := client.GetListing(ctx, id)
//
// The package compiles for both native targets and GOOS=js GOARCH=wasm;
// transport and context detection are selected by build tags.
package sdk
