package app

import (
	"os"
	"sync"
)

const testModeEnv = "BRICKFLOW_TEST_MODE"

// InTestMode reports whether BRICKFLOW_TEST_MODE=1 was set when first asked. The
// binaries then exit before opening storage or binding a port.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})
