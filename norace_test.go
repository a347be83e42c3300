//go:build !race
// +build !race

package relay

const raceEnabled = false
