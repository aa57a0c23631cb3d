package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whoiswatch/whoiswatch/pkg/model"
)

func baseRecord() model.CanonicalRecord {
	created := time.Date(2001, 5, 20, 0, 0, 0, 0, time.UTC)
	return model.CanonicalRecord{
		Registrar:    "Example Registrar, Inc.",
		CreationDate: &created,
		NameServers:  "ns1.example.com, ns2.example.com",
		Status:       "clientTransferProhibited",
		IP:           "192.0.2.10",
		MX:           "10/mail.example.com",
	}
}

func TestInitialObservation(t *testing.T) {
	changed, changes := Canonical(nil, baseRecord())
	assert.True(t, changed)
	assert.Empty(t, changes)
}

func TestNoChanges(t *testing.T) {
	prev := baseRecord()
	changed, changes := Canonical(&prev, baseRecord())
	assert.False(t, changed)
	assert.Empty(t, changes)
}

func TestSingleFieldChange(t *testing.T) {
	prev := baseRecord()
	cur := baseRecord()
	cur.Registrar = "Other Registrar LLC"

	changed, changes := Canonical(&prev, cur)
	assert.True(t, changed)
	require.Len(t, changes, 1)
	assert.Equal(t, model.FieldChange{
		Label: "Registrar",
		From:  "Example Registrar, Inc.",
		To:    "Other Registrar LLC",
	}, changes[0])
}

func TestEmissionOrderIsDeclaredFieldOrder(t *testing.T) {
	prev := baseRecord()
	cur := baseRecord()
	cur.MX = "20/mail2.example.com"
	cur.Registrar = "Other Registrar LLC"
	cur.Status = "ok"

	_, changes := Canonical(&prev, cur)
	require.Len(t, changes, 3)
	assert.Equal(t, "Registrar", changes[0].Label)
	assert.Equal(t, "Status", changes[1].Label)
	assert.Equal(t, "MX Addresses", changes[2].Label)
}

func TestDateComparesAtSecondPrecision(t *testing.T) {
	prev := baseRecord()
	cur := baseRecord()
	shifted := prev.CreationDate.Add(time.Hour)
	cur.CreationDate = &shifted

	changed, changes := Canonical(&prev, cur)
	assert.True(t, changed)
	require.Len(t, changes, 1)
	assert.Equal(t, "Creation Date", changes[0].Label)
	assert.Equal(t, "2001-05-20 00:00:00", changes[0].From)
	assert.Equal(t, "2001-05-20 01:00:00", changes[0].To)
}

func TestDisabledSentinelDiffersFromRealResult(t *testing.T) {
	prev := baseRecord()
	prev.IP = model.LookupsDisabled
	prev.MX = model.LookupsDisabled

	cur := baseRecord()
	cur.MX = ""

	_, changes := Canonical(&prev, cur)
	require.Len(t, changes, 2)
	assert.Equal(t, "IP Address", changes[0].Label)
	assert.Equal(t, model.LookupsDisabled, changes[0].From)
	assert.Equal(t, "192.0.2.10", changes[0].To)
	// An empty real answer set is still a transition away from the sentinel
	assert.Equal(t, "MX Addresses", changes[1].Label)
	assert.Equal(t, "", changes[1].To)
}
