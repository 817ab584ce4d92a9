package constants_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/agentstation/pkgfeed/pkg/constants"
)

// Example demonstrates using constants when writing the state file.
func Example() {
	dir, err := os.MkdirTemp("", "pkgfeed-example")
	if err != nil {
		panic(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	file := filepath.Join(dir, constants.DefaultStateFile)
	if err := os.WriteFile(file, []byte("{}"), constants.FilePermissions); err != nil {
		panic(err)
	}

	fmt.Printf("Wrote %s with %o permissions\n", filepath.Base(file), constants.FilePermissions)
	// Output:
	// Wrote pkgfeed-state.json with 644 permissions
}

// Example_timeouts demonstrates timeout constants.
func Example_timeouts() {
	client := &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
	}
	fmt.Printf("HTTP timeout: %v\n", client.Timeout)
	fmt.Printf("Watch interval: %v\n", constants.DefaultWatchInterval)

	// Output:
	// HTTP timeout: 30s
	// Watch interval: 1h0m0s
}

// Example_fields shows the default monitored fields and the sentinel value.
func Example_fields() {
	fmt.Println(constants.DefaultFields())
	fmt.Println(constants.NotAvailable)

	// Output:
	// [version origversion status]
	// N/A
}
