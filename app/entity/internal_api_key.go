package entity

import "time"

// InternalAPIKey authenticates a calling service. Only the SHA-256 of the raw key is stored.
type InternalAPIKey struct {
	ID            uint64
	ServiceName   string
	KeyHash       string
	AllowedAccess []string
	IsActive      bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (k *InternalAPIKey) Grants(access string) bool {
	for _, allowed := range k.AllowedAccess {
		if allowed == access {
			return true
		}
	}
	return false
}
