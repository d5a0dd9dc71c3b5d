// Package daemonctl launches, stops and inspects tubeferryd on behalf of
// the CLI.
package daemonctl
