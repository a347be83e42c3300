//go:build !relaydebug
// +build !relaydebug

package relay

const guardChecks = false
