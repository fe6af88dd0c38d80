package momo

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/momoflow/src/models"
)

func readAll(t *testing.T, doc string) ([]models.RawEntry, []*models.ParseError) {
	t.Helper()
	p := NewParser()
	entries, err := p.Entries(strings.NewReader(doc))
	require.NoError(t, err)

	var ok []models.RawEntry
	var failed []*models.ParseError
	for {
		entry, err := entries.Next()
		if err == io.EOF {
			return ok, failed
		}
		var parseErr *models.ParseError
		if asParseError(err, &parseErr) {
			failed = append(failed, parseErr)
			continue
		}
		require.NoError(t, err)
		ok = append(ok, entry)
	}
}

func asParseError(err error, target **models.ParseError) bool {
	if pe, ok := err.(*models.ParseError); ok {
		*target = pe
		return true
	}
	return false
}

func TestParseAttributeEntries(t *testing.T) {
	doc := `<?xml version="1.0"?>
<smses count="2">
  <sms date="2024-05-10 21:30:00" amount="50,000" address="0788123456"
       body="You have received money transfer" />
  <sms date="2024-05-11" amount="1500" address="0733987654" fee="50"
       body="Airtime purchase" status="Completed" transaction_id="TX-42" />
</smses>`

	entries, failed := readAll(t, doc)
	require.Empty(t, failed)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "2024-05-10 21:30:00", first.Date)
	assert.Equal(t, "50,000", first.Amount)
	assert.Equal(t, "0788123456", first.Phone)
	assert.Equal(t, "You have received money transfer", first.Body)
	assert.Contains(t, first.Fragment, `amount="50,000"`)

	second := entries[1]
	assert.Equal(t, 2, second.Index)
	assert.Equal(t, "50", second.Fee)
	assert.Equal(t, "Completed", second.Status)
	assert.Equal(t, "TX-42", second.Reference)
}

func TestParseChildElementEntries(t *testing.T) {
	doc := `<transactions>
  <transaction>
    <timestamp>2024-05-10</timestamp>
    <value>2500</value>
    <from>0788123456</from>
    <to>0733987654</to>
    <description>Sent to Jane</description>
    <ref>ABC-1</ref>
  </transaction>
</transactions>`

	entries, failed := readAll(t, doc)
	require.Empty(t, failed)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "2024-05-10", entry.Date)
	assert.Equal(t, "2500", entry.Amount)
	assert.Equal(t, "0788123456", entry.Sender)
	assert.Equal(t, "0733987654", entry.Recipient)
	assert.Equal(t, "Sent to Jane", entry.Body)
	assert.Equal(t, "ABC-1", entry.Reference)
	assert.Contains(t, entry.Fragment, "<value>2500</value>")
}

func TestParseBadNodeDoesNotAbortScan(t *testing.T) {
	doc := `<smses>
  <sms date="2024-05-10" amount="1000" address="0788123456" body="first" />
  <sms date="2024-05-11" body="no amount here" address="0788123456" />
  <sms amount="3000" address="0788123456" body="no date here" />
  <sms date="2024-05-12" amount="4000" body="nobody to bill" />
  <sms date="2024-05-13" amount="5000" address="0733987654" body="last" />
</smses>`

	entries, failed := readAll(t, doc)
	require.Len(t, entries, 2)
	require.Len(t, failed, 3)

	assert.Equal(t, "first", entries[0].Body)
	assert.Equal(t, "last", entries[1].Body)

	assert.Equal(t, 2, failed[0].Index)
	assert.Contains(t, failed[0].Reason, "amount")
	assert.Contains(t, failed[0].Fragment, "no amount here")

	assert.Equal(t, 3, failed[1].Index)
	assert.Contains(t, failed[1].Reason, "date")

	assert.Equal(t, 4, failed[2].Index)
	assert.Contains(t, failed[2].Reason, "no phone, sender or recipient")
}

func TestParseAttributeWinsOverChild(t *testing.T) {
	doc := `<smses>
  <sms date="2024-05-10" amount="1000" address="0788123456">
    <amount>9999</amount>
    <body>attribute amount should win</body>
  </sms>
</smses>`

	entries, failed := readAll(t, doc)
	require.Empty(t, failed)
	require.Len(t, entries, 1)
	assert.Equal(t, "1000", entries[0].Amount)
	assert.Equal(t, "attribute amount should win", entries[0].Body)
}

func TestParseEmptyDocument(t *testing.T) {
	entries, failed := readAll(t, `<smses count="0"></smses>`)
	assert.Empty(t, entries)
	assert.Empty(t, failed)
}

func TestParseMalformedDocumentIsFatal(t *testing.T) {
	p := NewParser()
	entries, err := p.Entries(strings.NewReader(`<smses><sms date="2024`))
	require.NoError(t, err)

	_, err = entries.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	var parseErr *models.ParseError
	assert.False(t, asParseError(err, &parseErr))
}
