package connectivity

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// WPA key derivation parameters (IEEE 802.11i).
const (
	pskIterations = 4096
	pskLen        = 32

	// MaxSSIDLen is the longest SSID an access point may broadcast.
	MaxSSIDLen = 32

	minPassphraseLen = 8
	maxPassphraseLen = 63
)

// ErrInvalidCredentials is returned for an SSID or passphrase a WPA access
// point would reject.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Validate checks the SSID length and, unless the network is open, that the
// passphrase is either 8 to 63 printable ASCII characters or a 64 digit hex
// PSK.
func (c Credentials) Validate() error {
	if len(c.SSID) > MaxSSIDLen {
		return fmt.Errorf("%w: ssid longer than %d bytes", ErrInvalidCredentials, MaxSSIDLen)
	}
	if c.MinAuthMode == AuthOpen {
		return nil
	}
	if isHexPSK(c.Passphrase) {
		return nil
	}
	n := len(c.Passphrase)
	if n < minPassphraseLen || n > maxPassphraseLen {
		return fmt.Errorf("%w: passphrase must be %d-%d characters", ErrInvalidCredentials, minPassphraseLen, maxPassphraseLen)
	}
	for i := 0; i < n; i++ {
		if c.Passphrase[i] < 0x20 || c.Passphrase[i] > 0x7e {
			return fmt.Errorf("%w: passphrase must be printable ASCII", ErrInvalidCredentials)
		}
	}
	return nil
}

// PSK returns the 256-bit pre-shared key for the credentials: the
// passphrase itself when it is a hex PSK, otherwise the PBKDF2 derivation
// salted with the SSID. Open networks have no key.
func (c Credentials) PSK() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.MinAuthMode == AuthOpen {
		return nil, nil
	}
	if isHexPSK(c.Passphrase) {
		return hex.DecodeString(c.Passphrase)
	}
	return DerivePSK(c.SSID, c.Passphrase), nil
}

// DerivePSK computes the WPA pre-shared key for passphrase on ssid.
func DerivePSK(ssid, passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(ssid), pskIterations, pskLen, sha1.New)
}

func isHexPSK(s string) bool {
	if len(s) != 2*pskLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
