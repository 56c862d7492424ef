package registry

import "time"

// User represents a wallet owner known to the registry. WalletAddress is the
// primary identity and never changes; Username is unique case-insensitively
// across the whole registry and may be renamed.
type User struct {
	WalletAddress string
	Username      string
	IsVerified    bool
	CreatedAt     time.Time
	LastSeen      time.Time
}
