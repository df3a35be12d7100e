// Package daemonctl starts, checks on, and stops a background vinylscout daemon
// from the CLI. Liveness comes from the pid file daemonrun writes; status
// comes from the daemon's HTTP API.
package daemonctl
