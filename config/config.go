package config

import "time"

// Path config
const (
	LogPath    = "./logs/"
	ConfigPath = "./"
)

// Bundle config
const (
	// The block engine executes a bundle atomically and caps it at 5 transactions.
	MAX_BUNDLE_SIZE = 5

	DEFAULT_NUM_TXS      = 1
	DEFAULT_TIP_LAMPORTS = 1000

	// Rough per-signature fee margin used by the balance preflight
	LAMPORTS_PER_SIGNATURE = 5000
)

// Leader polling config
const (
	// Only submit when the next jito-solana leader is at most this many slots away.
	// Advisory: slot distance can shrink between polls due to network latency.
	LEADER_PROXIMITY_SLOTS = 2
	LEADER_POLL_INTERVAL   = 500 * time.Millisecond
)

// Confirmation config
const (
	// Per-iteration wait on the result streams before falling back to a leader
	// probe. Quiescence is not failure, the probe only surfaces progress.
	RESULT_WAIT_TIMEOUT = 5 * time.Second

	// Overall budget for one confirmation run. No automatic resubmission after
	// this elapses, the blockhash is likely stale by then.
	CONFIRM_DEADLINE = 60 * time.Second
)

// Network config
const (
	DefaultRetryTimes    = 3
	DefaultRetryInterval = 50 * time.Millisecond
	DefaultTimeout       = 20 * time.Second
)
