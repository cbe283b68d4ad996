package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	textransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyDescription converts free text to a lowercase hyphenated token for
// use in identifiers.
// Examples: "DIVIDEND RECEIVED" → "dividend-received", "Café Pâtisserie" → "cafe-patisserie"
func SlugifyDescription(s string) string {
	t := textransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := textransform.String(t, s)
	if err != nil {
		normalized = s
	}

	slug := strings.ToLower(normalized)
	slug = nonAlnum.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// TransactionID creates a deterministic identifier for a transaction.
// Format: "fid-{acctNum}-{orderNumber}" when the brokerage assigned an order
// number, otherwise "fid-{acctNum}-{date}-{fingerprint12}". Stable across
// fetches so downstream stores can upsert instead of duplicating.
func TransactionID(t *domain.Transaction) string {
	if t.OrderNumber != nil {
		order := SlugifyDescription(*t.OrderNumber)
		if order != "" {
			return fmt.Sprintf("fid-%s-%s", t.AcctNum, order)
		}
	}
	return fmt.Sprintf("fid-%s-%s-%s", t.AcctNum, t.Date.String(), Fingerprint(t)[:12])
}

// Fingerprint creates a SHA256 hash over the stable parts of a transaction:
// date, amount (2 decimal places, empty when absent) and the normalized
// description.
func Fingerprint(t *domain.Transaction) string {
	amount := ""
	if t.Amount != nil {
		amount = t.Amount.StringFixed(2)
	}
	desc := strings.ToLower(strings.TrimSpace(t.Description))

	input := fmt.Sprintf("%s|%s|%s", t.Date.String(), amount, desc)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
