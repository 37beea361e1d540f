package types

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_SESSION             = "sess"
	UUID_PREFIX_PAYOUT_STATEMENT    = "ps"
	UUID_PREFIX_PAYOUT_LINE_ITEM    = "psli"
	UUID_PREFIX_BILLING_RECORD      = "bill"
	UUID_PREFIX_WEBHOOK_EVENT       = "webhook"
	UUID_PREFIX_REQUEST             = "req"
	UUID_PREFIX_CLEARING_REFERENCE  = "clr"
	UUID_PREFIX_PAYMENT_TRANSACTION = "pay"
)

// GenerateUUID returns a lowercase ULID. ULIDs sort lexicographically by
// creation time which keeps index pages warm on insert-heavy tables.
func GenerateUUID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// GenerateUUIDWithPrefix returns a ULID prefixed with an entity discriminator,
// e.g. "sess_01HGW2N8X...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
