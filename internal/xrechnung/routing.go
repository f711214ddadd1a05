package xrechnung

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/rezonia/peppol-connector/internal/model"
)

var (
	routingPattern   = regexp.MustCompile(`^([0-9]{2,12})-([0-9A-Z]{1,30})-([0-9A-Z]{2})$`)
	routingPrefix    = regexp.MustCompile(`^[0-9]{2,12}-`)
	ninetySeven      = big.NewInt(97)
	routingFieldName = "leitweg_id"
)

// RoutingIdentifier is a German public-sector routing code (Leitweg-ID):
// coarse routing, fine routing and two check characters.
type RoutingIdentifier struct {
	Coarse string `json:"coarse"`
	Fine   string `json:"fine"`
	Check  string `json:"check"`
}

// ParseRoutingIdentifier parses "coarse-fine-check". Input is matched case
// insensitively and stored upper-cased.
func ParseRoutingIdentifier(s string) (RoutingIdentifier, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return RoutingIdentifier{}, model.NewValidationError(routingFieldName, s, "required", "routing identifier is empty")
	}
	m := routingPattern.FindStringSubmatch(raw)
	if m == nil {
		return RoutingIdentifier{}, model.NewValidationError(routingFieldName, s, "format",
			"expected coarse-fine-check (2-12 digits, 1-30 alphanumerics, 2 check characters)")
	}
	return RoutingIdentifier{Coarse: m[1], Fine: m[2], Check: m[3]}, nil
}

// MustParseRoutingIdentifier is like ParseRoutingIdentifier but panics on error
func MustParseRoutingIdentifier(s string) RoutingIdentifier {
	id, err := ParseRoutingIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String formats the identifier as coarse-fine-check
func (r RoutingIdentifier) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Coarse + "-" + r.Fine + "-" + r.Check
}

// IsZero reports whether the identifier is unset
func (r RoutingIdentifier) IsZero() bool {
	return r.Coarse == "" && r.Fine == "" && r.Check == ""
}

// ExpectedCheck computes the ISO/IEC 7064 MOD 97-10 check characters over
// coarse and fine routing, letters counting as 10..35.
func (r RoutingIdentifier) ExpectedCheck() string {
	n, ok := new(big.Int).SetString(digitize(r.Coarse+r.Fine)+"00", 10)
	if !ok {
		return ""
	}
	rem := new(big.Int).Mod(n, ninetySeven).Int64()
	return fmt.Sprintf("%02d", 98-rem)
}

// ChecksumValid reports whether Check matches ExpectedCheck
func (r RoutingIdentifier) ChecksumValid() bool {
	return r.Check != "" && r.Check == r.ExpectedCheck()
}

// LooksLikeRoutingIdentifier reports whether s starts the way a Leitweg-ID
// does, so a malformed one can be told apart from an ordinary buyer reference
func LooksLikeRoutingIdentifier(s string) bool {
	return routingPrefix.MatchString(strings.TrimSpace(s))
}

func digitize(s string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(s) {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteString(strconv.Itoa(int(c-'A') + 10))
		}
	}
	return b.String()
}
