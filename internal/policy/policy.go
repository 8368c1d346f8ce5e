// Package policy defines the field-confidentiality schema for every stored
// record type. The plaintext / deterministic / random split is declared once
// here and consulted by the write codec and by migration tooling, never
// re-typed at call sites.
package policy

import "fmt"

// Tier is the confidentiality tier of a single logical field.
type Tier int

const (
	// Plaintext fields are stored and indexed as-is. They carry everything
	// the store needs for filtering, sorting and grouping.
	Plaintext Tier = iota

	// Deterministic fields are encrypted so that equal plaintext yields
	// equal ciphertext, which keeps equality lookups possible. Used for
	// join/lookup keys only.
	Deterministic

	// Random fields are encrypted with a fresh nonce per call. Maximum
	// confidentiality, no server-side queryability.
	Random
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case Plaintext:
		return "plaintext"
	case Deterministic:
		return "deterministic"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Record identifies a stored record type.
type Record string

const (
	RecordTransaction Record = "transactions"
	RecordAccount     Record = "accounts"
	RecordBalance     Record = "balances"
	RecordConnection  Record = "connections"
)

// schema maps record type → field name → tier. Changing an entry requires a
// data migration: the mapping must be identical at write and read time.
var schema = map[Record]map[string]Tier{
	RecordTransaction: {
		"userId":         Plaintext,
		"bookingDate":    Plaintext,
		"bookingMonth":   Plaintext,
		"bookingYear":    Plaintext,
		"bookingWeekday": Plaintext,
		"status":         Plaintext,
		"pending":        Plaintext,
		"paymentChannel": Plaintext,
		"category":       Plaintext,
		"exclude":        Plaintext,
		"createdAt":      Plaintext,
		"updatedAt":      Plaintext,

		"transactionId": Deterministic,
		"accountId":     Deterministic,

		"amount":           Random,
		"currency":         Random,
		"valueDate":        Random,
		"description":      Random,
		"counterparty":     Random,
		"merchantName":     Random,
		"location":         Random,
		"providerCategory": Random,
		"raw":              Random,
	},
	RecordAccount: {
		"userId":        Plaintext,
		"institutionId": Plaintext,
		"currency":      Plaintext,
		"status":        Plaintext,
		"createdAt":     Plaintext,
		"updatedAt":     Plaintext,

		"accountId":    Deterministic,
		"connectionId": Deterministic,

		"name": Random,
		"iban": Random,
		"raw":  Random,
	},
	RecordBalance: {
		"userId":        Plaintext,
		"balanceType":   Plaintext,
		"referenceDate": Plaintext,
		"createdAt":     Plaintext,
		"updatedAt":     Plaintext,

		"accountId": Deterministic,

		"amount":   Random,
		"currency": Random,
	},
	RecordConnection: {
		"userId":        Plaintext,
		"institutionId": Plaintext,
		"status":        Plaintext,
		"createdAt":     Plaintext,
		"updatedAt":     Plaintext,

		"connectionId": Deterministic,

		"accessToken": Random,
		"raw":         Random,
	},
}

// TierFor returns the confidentiality tier for a field of the given record
// type. Unknown fields return an error rather than silently defaulting: a
// field missing from the schema is a programming error, and defaulting to
// plaintext would leak it.
func TierFor(record Record, field string) (Tier, error) {
	fields, ok := schema[record]
	if !ok {
		return Plaintext, fmt.Errorf("policy: unknown record type %q", record)
	}
	tier, ok := fields[field]
	if !ok {
		return Plaintext, fmt.Errorf("policy: no tier declared for %s.%s", record, field)
	}
	return tier, nil
}

// Fields returns the declared field names of a record type with the given
// tier, in unspecified order. Migration tooling iterates these.
func Fields(record Record, tier Tier) []string {
	var out []string
	for name, t := range schema[record] {
		if t == tier {
			out = append(out, name)
		}
	}
	return out
}

// Records returns all record types with a declared schema.
func Records() []Record {
	out := make([]Record, 0, len(schema))
	for r := range schema {
		out = append(out, r)
	}
	return out
}
