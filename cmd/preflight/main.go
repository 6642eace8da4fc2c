// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	apiAddr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	dns := strings.TrimSpace(os.Getenv("DNS_SERVER"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (sweep routes will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (API routes will 401).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if apiAddr == "" {
		warn("ADDR is empty; default in your app may be used.")
	} else {
		ok("ADDR=" + apiAddr)
	}

	if db == "" {
		warn("DATABASE_URL empty — API will use in-memory stores unless overridden at runtime.")
	} else {
		ok("DATABASE_URL present")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty — CORS falls back to allow-all.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	if dns == "" {
		warn("DNS_SERVER empty — TXT lookups will use the default 8.8.8.8:53.")
	} else if !strings.Contains(dns, ":") {
		warn("DNS_SERVER has no port; expected host:port, e.g. 8.8.8.8:53")
	} else {
		ok("DNS_SERVER=" + dns)
	}

	// Millisecond knobs must parse as non-negative integers.
	for _, name := range []string{
		"PROBE_TIMEOUT_MS", "PROBE_INTERVAL_MS", "PROBE_LEASE_TTL_MS",
		"VERIFY_INTERVAL_MS", "VERIFY_BASE_DELAY_MS", "AGGREGATE_INTERVAL_MS",
	} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			fail(name + "=" + v + " is not a non-negative integer (milliseconds).")
		}
	}

	ok("preflight passed")
}
