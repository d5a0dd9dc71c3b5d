// Package main hosts the tubeferry CLI entrypoint and command graph.
//
// Commands translate terminal invocations into JSON-RPC calls against
// tubeferryd over its Unix socket. Configuration resolution and socket
// discovery live in commandContext so subcommands only deal with
// presentation.
package main
