package policy

import "testing"

func TestTierFor(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		field   string
		want    Tier
		wantErr bool
	}{
		{"transaction user id is plaintext", RecordTransaction, "userId", Plaintext, false},
		{"transaction id is deterministic", RecordTransaction, "transactionId", Deterministic, false},
		{"transaction amount is random", RecordTransaction, "amount", Random, false},
		{"transaction description is random", RecordTransaction, "description", Random, false},
		{"booking month is plaintext", RecordTransaction, "bookingMonth", Plaintext, false},
		{"account iban is random", RecordAccount, "iban", Random, false},
		{"connection access token is random", RecordConnection, "accessToken", Random, false},
		{"balance reference date is plaintext", RecordBalance, "referenceDate", Plaintext, false},
		{"unknown field errors", RecordTransaction, "nope", Plaintext, true},
		{"unknown record errors", Record("widgets"), "userId", Plaintext, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TierFor(tt.record, tt.field)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TierFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("TierFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The sensitive fields of every record type must never be declared plaintext.
// This guards against accidental schema edits: changing a tier requires a
// data migration, not a one-line tweak.
func TestSchemaInvariants(t *testing.T) {
	mustNotBePlaintext := map[Record][]string{
		RecordTransaction: {"amount", "currency", "description", "counterparty", "raw"},
		RecordAccount:     {"iban", "name", "raw"},
		RecordBalance:     {"amount", "currency"},
		RecordConnection:  {"accessToken", "raw"},
	}

	for record, fields := range mustNotBePlaintext {
		for _, field := range fields {
			tier, err := TierFor(record, field)
			if err != nil {
				t.Fatalf("TierFor(%s, %s): %v", record, field, err)
			}
			if tier == Plaintext {
				t.Errorf("%s.%s is declared plaintext; must be encrypted", record, field)
			}
		}
	}

	// Lookup keys must be deterministic so equality queries keep working.
	for record, field := range map[Record]string{
		RecordTransaction: "transactionId",
		RecordAccount:     "accountId",
		RecordBalance:     "accountId",
		RecordConnection:  "connectionId",
	} {
		tier, err := TierFor(record, field)
		if err != nil {
			t.Fatalf("TierFor(%s, %s): %v", record, field, err)
		}
		if tier != Deterministic {
			t.Errorf("%s.%s = %v, want deterministic", record, field, tier)
		}
	}
}

func TestFieldsPartition(t *testing.T) {
	for _, record := range Records() {
		total := len(Fields(record, Plaintext)) +
			len(Fields(record, Deterministic)) +
			len(Fields(record, Random))
		if total == 0 {
			t.Errorf("record %s has no declared fields", record)
		}
	}
}

func TestTierString(t *testing.T) {
	if Plaintext.String() != "plaintext" || Deterministic.String() != "deterministic" || Random.String() != "random" {
		t.Error("unexpected tier string form")
	}
}
