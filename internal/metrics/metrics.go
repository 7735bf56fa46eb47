// Package metrics exposes process counters through expvar at /debug/vars.
package metrics

import (
	"expvar"
	"net/http"
)

var (
	Logins             = expvar.NewInt("session_logins")
	LoginFailures      = expvar.NewInt("session_login_failures")
	LoginTimeouts      = expvar.NewInt("session_login_timeouts")
	IdentityMismatches = expvar.NewInt("session_identity_mismatches")
	CycleRuns          = expvar.NewInt("refresh_cycles")
	CycleFailures      = expvar.NewInt("refresh_account_failures")
	CacheWrites        = expvar.NewInt("cache_writes")
	TradeQueries       = expvar.NewInt("trade_queries")
)

// Handler serves all published expvar variables as JSON.
func Handler() http.Handler {
	return expvar.Handler()
}
