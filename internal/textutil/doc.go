// Package textutil holds small string helpers shared by the queue and the
// catalog resolver for building file-name prefixes.
package textutil
