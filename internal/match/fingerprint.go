// SPDX-License-Identifier: MIT

package match

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Fingerprint computes the stable identity of a stream/event pairing:
// a SHA-256 over the normalized participants plus the event date.
// Participants are sorted so "(A,B)" and "(B,A)" share one identity,
// and the hash must not change across runs for unchanged input text.
func Fingerprint(participantA, participantB string, date time.Time) string {
	parts := []string{Normalize(participantA), Normalize(participantB)}
	sort.Strings(parts)

	payload := strings.Join(parts, "|") + "|" + date.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
