package verify

import "time"

// TokenPrefix is the fixed prefix a domain owner publishes in the TXT
// record, followed by the verification code issued at registration.
const TokenPrefix = "monitoring-verify="

// ExpectedRecord is the exact TXT record value that proves ownership.
// Matching is exact per record, never substring.
func ExpectedRecord(code string) string {
	return TokenPrefix + code
}

// Backoff is a retry delay policy: attempts already made -> wait before
// the next try.
type Backoff func(attempts int) time.Duration

// LinearBackoff scales the base delay by the attempt count. After the
// first failed attempt the domain waits base, after the second 2*base,
// and so on.
func LinearBackoff(base time.Duration) Backoff {
	return func(attempts int) time.Duration {
		if attempts < 1 {
			attempts = 1
		}
		return time.Duration(attempts) * base
	}
}
