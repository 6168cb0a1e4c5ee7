package app

import (
	"os"
	"sync"
)

const testModeEnv = "DASHBOARD_TEST_MODE"

// InTestMode reports whether the binary was started by test helpers, in
// which case it must not bind ports or dial redis. The flag is read once.
var InTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})
