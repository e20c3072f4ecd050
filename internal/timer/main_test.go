package timer

import (
	"testing"

	"go.uber.org/goleak"
)

// Every countdown goroutine must be gone once its timer is stopped,
// replaced or expired.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
