package testutils

import (
	"os"
	"time"
)

// ciScale stretches waits on shared CI runners.
const ciScale = 3

// IsCI reports whether tests run under a CI provider.
func IsCI() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// Timeout returns d, scaled up when running in CI. Use it for Eventually
// waits on worker goroutines.
func Timeout(d time.Duration) time.Duration {
	if IsCI() {
		return d * ciScale
	}
	return d
}
