// Package factory builds pluggable modules, such as metrics and playback
// sinks, from configuration entries of the form
//
//	{"type": "influx", "conf": {"url": "http://localhost:8086", "bucket": "fleet"}}
//
// Implementations register a constructor under their type name from an init
// function; the application selects them by importing the implementing
// package for its side effects.
package factory
