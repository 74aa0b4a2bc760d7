package mart

import (
	"strings"
	"time"
)

// dateLayout is the canonical form of date-valued identity parts.
const dateLayout = "2006-01-02"

// keySep separates the parts of a composite identity key. The unit separator
// never occurs in source text, so joined keys cannot collide.
const keySep = "\x1f"

// Normalize produces the canonical comparison form of a text identity column:
// surrounding whitespace trimmed, case folded. It must be applied to both
// sides of every identity comparison; asymmetric normalization silently
// splits identities.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func compositeKey(parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = Normalize(p)
	}
	return strings.Join(norm, keySep)
}

// DeliveryKey is the full identity of a delivery dimension version.
func DeliveryKey(clientName, address, postcode string) string {
	return compositeKey(clientName, address, postcode)
}

// ProductKey is the identity of a product dimension row.
func ProductKey(productName string) string {
	return Normalize(productName)
}

// PaymentKey is the identity triple of a payment dimension row.
func PaymentKey(billingCode, paymentType string, paymentDate time.Time) string {
	return compositeKey(billingCode, paymentType, paymentDate.UTC().Format(dateLayout))
}
