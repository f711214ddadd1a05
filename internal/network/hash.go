package network

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"

	"github.com/rezonia/peppol-connector/internal/model"
)

// SML zones
const (
	SMLZoneProduction = "edelivery.tech.ec.europa.eu"
	SMLZoneTest       = "acc.edelivery.tech.ec.europa.eu"
)

// normalizedParticipant is the lower-cased scheme::identifier form that
// locator hashes are computed over
func normalizedParticipant(p model.Participant) string {
	return strings.ToLower(p.URN())
}

// ParticipantHash is the legacy SML host label: "B-" + hex MD5
func ParticipantHash(p model.Participant) string {
	sum := md5.Sum([]byte(normalizedParticipant(p)))
	return "B-" + hex.EncodeToString(sum[:])
}

// SMLHostname is the DNS name that resolves to the participant's SMP
func SMLHostname(p model.Participant, zone string) string {
	return ParticipantHash(p) + "." + model.ParticipantScheme + "." + strings.TrimSuffix(zone, ".")
}

// NAPTRLabel is the BDXL label: unpadded base32 of the SHA-256 digest,
// lower-cased
func NAPTRLabel(p model.Participant) string {
	sum := sha256.Sum256([]byte(normalizedParticipant(p)))
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:]))
}

// NAPTRHostname is the name queried for the participant's U-NAPTR record
func NAPTRHostname(p model.Participant, zone string) string {
	return NAPTRLabel(p) + "." + model.ParticipantScheme + "." + strings.TrimSuffix(zone, ".")
}
