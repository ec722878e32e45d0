package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// NewRequestID returns a fresh globally-unique request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// NewClientID derives a stable-looking 16-hex-character client
// identifier from the local hostname and the current time. The
// hostname is NFC-normalized before hashing so the same machine
// produces the same byte sequence regardless of how the OS reports
// composed characters.
//
// The result never contains an underscore, which FileName relies on.
func NewClientID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	host = norm.NFC.String(host)

	sum := sha256.Sum256(fmt.Appendf(nil, "%s_%d", host, time.Now().UnixNano()))
	return hex.EncodeToString(sum[:])[:16]
}
