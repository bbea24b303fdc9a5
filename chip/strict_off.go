//go:build !chipdebug

package chip

const strictScheduling = false
