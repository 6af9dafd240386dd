// Package websocket pushes operation snapshots and dataset events to the
// dashboard. A single Hub goroutine owns the client set; each client runs a
// read pump and a write pump.
package websocket
