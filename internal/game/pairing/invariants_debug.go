//go:build memmatchdebug

package pairing

const debugInvariants = true
