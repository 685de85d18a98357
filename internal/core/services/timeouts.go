package services

import "time"

// Timeouts bound every external call made by the services.
type Timeouts struct {
	Fetch    time.Duration
	Embed    time.Duration
	Store    time.Duration
	LockWait time.Duration
	LockTTL  time.Duration
}

// DefaultTimeouts returns the production timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Fetch:    30 * time.Second,
		Embed:    60 * time.Second,
		Store:    15 * time.Second,
		LockWait: 2 * time.Minute,
		LockTTL:  5 * time.Minute,
	}
}

// withDefaults fills zero values from DefaultTimeouts
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Fetch <= 0 {
		t.Fetch = d.Fetch
	}
	if t.Embed <= 0 {
		t.Embed = d.Embed
	}
	if t.Store <= 0 {
		t.Store = d.Store
	}
	if t.LockWait <= 0 {
		t.LockWait = d.LockWait
	}
	if t.LockTTL <= 0 {
		t.LockTTL = d.LockTTL
	}
	return t
}
