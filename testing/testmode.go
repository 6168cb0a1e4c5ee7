// Package testing switches the process into test mode when imported. Test
// packages and the fake backend import it for that side effect only.
package testing

import "os"

func init() {
	_ = os.Setenv("DASHBOARD_TEST_MODE", "1")
	setDefault("APP_ENV", "test")
	setDefault("BACKEND_BASE_URL", "http://127.0.0.1:0/api")
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}
