// Package agent carries router requests between UI surfaces and the
// background agent over a unix socket.
//
// Framing is newline-delimited JSON: one router.Request per line in, one
// router.Response per line out, any number of exchanges per connection.
package agent
