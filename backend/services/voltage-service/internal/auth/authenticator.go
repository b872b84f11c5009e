package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Decision is the outcome of authenticating a device request.
type Decision int

const (
	// Authorized means the credential matched and the device, if named, is allowed.
	Authorized Decision = iota
	// InvalidCredential means the shared key was missing or wrong.
	InvalidCredential
	// DeviceNotAllowed means the named device is not on the allow-list.
	DeviceNotAllowed
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case InvalidCredential:
		return "invalid_credential"
	case DeviceNotAllowed:
		return "device_not_allowed"
	default:
		return "unknown"
	}
}

// Settings configures the Authenticator. Exactly one of APIKey or APIKeyHash is
// normally set; APIKeyHash is a bcrypt hash and wins when both are present.
type Settings struct {
	APIKey         string
	APIKeyHash     string
	AllowedDevices []string
}

// Authenticator validates device credentials against a shared secret and an
// allow-list. It is safe for concurrent use and has no side effects.
type Authenticator struct {
	apiKey     []byte
	apiKeyHash []byte
	devices    []string
	allowed    map[string]struct{}
}

// NewAuthenticator builds an Authenticator. An empty allow-list admits every device.
func NewAuthenticator(s Settings) *Authenticator {
	a := &Authenticator{
		apiKey:  []byte(s.APIKey),
		allowed: make(map[string]struct{}, len(s.AllowedDevices)),
	}
	if hash := strings.TrimSpace(s.APIKeyHash); hash != "" {
		a.apiKeyHash = []byte(hash)
	}
	for _, id := range s.AllowedDevices {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := a.allowed[id]; !dup {
			a.devices = append(a.devices, id)
		}
		a.allowed[id] = struct{}{}
	}
	return a
}

// Authenticate checks the credential first and the device identity second.
// An empty deviceID passes the device check.
func (a *Authenticator) Authenticate(credential, deviceID string) Decision {
	if !a.credentialValid(credential) {
		return InvalidCredential
	}
	if deviceID != "" && !a.DeviceAllowed(deviceID) {
		return DeviceNotAllowed
	}
	return Authorized
}

// DeviceAllowed reports whether deviceID passes the allow-list.
func (a *Authenticator) DeviceAllowed(deviceID string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[deviceID]
	return ok
}

// AllowedDevices returns the configured allow-list in configuration order.
func (a *Authenticator) AllowedDevices() []string {
	out := make([]string, len(a.devices))
	copy(out, a.devices)
	return out
}

func (a *Authenticator) credentialValid(credential string) bool {
	if credential == "" {
		return false
	}
	if a.apiKeyHash != nil {
		return bcrypt.CompareHashAndPassword(a.apiKeyHash, []byte(credential)) == nil
	}
	if len(a.apiKey) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.apiKey, []byte(credential)) == 1
}
