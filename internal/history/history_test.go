package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundTripMixedEntries(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	log := Log{
		{Change: &StatusChange{Status: "PENDING", Timestamp: now}},
		{Address: &AddressSnapshot{
			Billing:               AddressData{FirstName: "Ayşe", City: "İstanbul"},
			Shipping:              AddressData{FirstName: "Ayşe", City: "İstanbul"},
			ShippingSameAsBilling: true,
			Timestamp:             now,
		}},
		{Contract: &ContractAcceptance{
			TermsHTML:             "<p>terms</p>",
			DistanceSalesHTML:     "<p>contract</p>",
			TermsAccepted:         true,
			DistanceSalesAccepted: true,
			Timestamp:             now,
		}},
		{Change: &StatusChange{Status: "PROCESSING", PaymentID: "pay_1", Timestamp: now}},
	}

	raw, err := log.Raw()
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 4)

	require.Equal(t, "PENDING", parsed[0].Change.Status)
	require.Equal(t, "Ayşe", parsed[1].Address.Billing.FirstName)
	require.True(t, parsed[1].Address.ShippingSameAsBilling)
	require.Equal(t, "<p>terms</p>", parsed[2].Contract.TermsHTML)
	require.True(t, parsed[2].Contract.DistanceSalesAccepted)
	require.Equal(t, "pay_1", parsed[3].Change.PaymentID)
	require.True(t, parsed[3].Change.Timestamp.Equal(now))
}

// Transitions are discriminated by a "status" key, snapshots by a "type" key.
// That on-disk split must not change, existing rows depend on it.
func TestOnDiskDiscriminators(t *testing.T) {
	raw, err := json.Marshal(Entry{Change: &StatusChange{Status: "PENDING", Timestamp: time.Now()}})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Contains(t, m, "status")
	require.NotContains(t, m, "type")

	raw, err = json.Marshal(Entry{Address: &AddressSnapshot{Timestamp: time.Now()}})
	require.NoError(t, err)
	m = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, "ADDRESS_SNAPSHOT", m["type"])
	require.Contains(t, m, "shippingSameAsBilling")

	raw, err = json.Marshal(Entry{Contract: &ContractAcceptance{Timestamp: time.Now()}})
	require.NoError(t, err)
	m = map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, "CONTRACT_ACCEPTANCE", m["type"])
}

func TestKind(t *testing.T) {
	require.Equal(t, KindStatusChange, Entry{Change: &StatusChange{}}.Kind())
	require.Equal(t, KindAddressSnapshot, Entry{Address: &AddressSnapshot{}}.Kind())
	require.Equal(t, KindContractAcceptance, Entry{Contract: &ContractAcceptance{}}.Kind())
}

func TestAppendPreservesExistingEntries(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	log := Log{{Change: &StatusChange{Status: "PENDING", Timestamp: now}}}
	raw, err := log.Raw()
	require.NoError(t, err)

	raw, err = Append(raw, Entry{Change: &StatusChange{Status: "PROCESSING", Timestamp: now}})
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	require.Equal(t, "PENDING", parsed[0].Change.Status)
	require.Equal(t, "PROCESSING", parsed[1].Change.Status)
}

func TestUnmarshalRejectsUnknownShape(t *testing.T) {
	var e Entry
	require.Error(t, json.Unmarshal([]byte(`{"foo":"bar"}`), &e))
}

func TestMarshalEmptyEntryFails(t *testing.T) {
	_, err := json.Marshal(Entry{})
	require.Error(t, err)
}

func TestParseEmptyRaw(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.Nil(t, parsed)
}
