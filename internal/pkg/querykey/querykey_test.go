package querykey_test

import (
	"testing"

	"github.com/google/uuid"

	"mapmarks/internal/pkg/querykey"
)

func TestEncode_StripsHyphensAndPrefixes(t *testing.T) {
	got := querykey.Encode("4ab9a812-76e7-4c85-a8e7-53d4f6b1e000")
	want := "Q4ab9a81276e74c85a8e753d4f6b1e000"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	guid := "9f1c0000-aaaa-bbbb-cccc-123456789012"
	if querykey.Encode(guid) != querykey.Encode(guid) {
		t.Error("encoding the same guid twice gave different keys")
	}
}

func TestEncode_LeadingDigitGuidStillValidAlias(t *testing.T) {
	got := querykey.Encode("123-abc")
	if got[0] == '1' {
		t.Errorf("alias must not start with a digit, got %s", got)
	}
	if got != "Q123abc" {
		t.Errorf("expected Q123abc, got %s", got)
	}
}

func TestEncode_InjectiveOverGeneratedGuids(t *testing.T) {
	seen := make(map[string]string, 1000)
	for i := 0; i < 1000; i++ {
		guid := uuid.NewString()
		key := querykey.Encode(guid)
		if prev, dup := seen[key]; dup {
			t.Fatalf("collision: %s and %s both encode to %s", prev, guid, key)
		}
		seen[key] = guid
	}
}
