package types

// InternalAccess describes the calling service behind a validated API key.
type InternalAccess struct {
	ServiceName   string   `json:"service_name"`
	AllowedAccess []string `json:"allowed_access"`
}

// Allows reports whether the caller was granted the named access.
func (a *InternalAccess) Allows(access string) bool {
	if a == nil {
		return false
	}
	for _, allowed := range a.AllowedAccess {
		if allowed == access {
			return true
		}
	}
	return false
}
