// Package logger provides structured logging for meshkit services built on
// zerolog. Every component obtains a tagged logger via WithComponent so log
// lines can be traced back to the registry, mesh, gateway, or an individual
// service runtime.
package logger
