// src/parsers/momo/parser.go
package momo

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/username/momoflow/src/models"
	"github.com/username/momoflow/src/parsers"
)

func init() {
	parsers.Register("momo", func() parsers.Parser { return NewParser() })
}

// entryElements are the node names treated as one SMS entry. Exports from
// different backup tools disagree on the element name, so all known
// variants are accepted.
var entryElements = map[string]bool{
	"sms":         true,
	"transaction": true,
	"message":     true,
	"record":      true,
}

// fieldAliases maps each RawEntry field to the attribute/child names it may
// appear under in the wild.
var fieldAliases = map[string][]string{
	"date":      {"date", "timestamp", "time", "datetime"},
	"amount":    {"amount", "value", "sum", "total"},
	"fee":       {"fee", "charge"},
	"phone":     {"phone", "number", "mobile", "msisdn", "address"},
	"sender":    {"sender", "from", "source"},
	"recipient": {"recipient", "to", "destination"},
	"body":      {"body", "description", "desc", "message", "text"},
	"reference": {"reference", "ref", "id", "transaction_id", "txid"},
	"status":    {"status", "state", "result"},
}

// MoMoParser reads mobile-money SMS entries out of an XML export.
type MoMoParser struct{}

// NewParser creates a new instance of the MoMoParser.
func NewParser() *MoMoParser {
	return &MoMoParser{}
}

// Entries wraps the reader in a streaming EntryReader. The document is
// scanned in a single forward pass; nothing is buffered beyond the current
// entry.
func (p *MoMoParser) Entries(r io.Reader) (parsers.EntryReader, error) {
	return &entryReader{dec: xml.NewDecoder(r)}, nil
}

type entryReader struct {
	dec   *xml.Decoder
	index int
}

// Next returns the next entry in document order. A bad node yields a
// *models.ParseError scoped to that node only; the scan stays usable for
// the following entries.
func (r *entryReader) Next() (models.RawEntry, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return models.RawEntry{}, io.EOF
		}
		if err != nil {
			return models.RawEntry{}, fmt.Errorf("malformed document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !entryElements[strings.ToLower(start.Name.Local)] {
			// Wrapper element (e.g. the <smses> root): descend into it.
			continue
		}

		r.index++
		return r.readEntry(start)
	}
}

// readEntry consumes one entry element, collecting attribute and child
// values into a RawEntry and reconstructing the node's XML for
// dead-letter traceability.
func (r *entryReader) readEntry(start xml.StartElement) (models.RawEntry, error) {
	fields := map[string]string{}
	for _, attr := range start.Attr {
		fields[strings.ToLower(attr.Name.Local)] = strings.TrimSpace(attr.Value)
	}

	var frag strings.Builder
	frag.WriteString("<" + start.Name.Local)
	for _, attr := range start.Attr {
		fmt.Fprintf(&frag, " %s=%q", attr.Name.Local, attr.Value)
	}

	var inner strings.Builder
	depth := 0
	childName := ""
	var childText strings.Builder

	for {
		tok, err := r.dec.Token()
		if err != nil {
			return models.RawEntry{}, fmt.Errorf("malformed document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				childName = strings.ToLower(t.Name.Local)
				childText.Reset()
			}
		case xml.CharData:
			if depth >= 1 {
				childText.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				// End of the entry element itself.
				entry, perr := r.buildEntry(fields, finishFragment(&frag, start.Name.Local, inner.String()))
				if perr != nil {
					return models.RawEntry{}, perr
				}
				return entry, nil
			}
			depth--
			if depth == 0 {
				text := strings.TrimSpace(childText.String())
				if _, seen := fields[childName]; !seen {
					fields[childName] = text
				}
				fmt.Fprintf(&inner, "<%s>%s</%s>", childName, text, childName)
			}
		}
	}
}

func finishFragment(frag *strings.Builder, name, inner string) string {
	if inner == "" {
		frag.WriteString("/>")
	} else {
		frag.WriteString(">" + inner + "</" + name + ">")
	}
	return frag.String()
}

// buildEntry resolves field aliases and enforces the structural minimum:
// an amount, a date and at least one counterparty identifier.
func (r *entryReader) buildEntry(fields map[string]string, fragment string) (models.RawEntry, *models.ParseError) {
	pick := func(field string) string {
		for _, alias := range fieldAliases[field] {
			if v, ok := fields[alias]; ok && v != "" {
				return v
			}
		}
		return ""
	}

	entry := models.RawEntry{
		Index:     r.index,
		Date:      pick("date"),
		Amount:    pick("amount"),
		Fee:       pick("fee"),
		Phone:     pick("phone"),
		Sender:    pick("sender"),
		Recipient: pick("recipient"),
		Body:      pick("body"),
		Reference: pick("reference"),
		Status:    pick("status"),
		Fragment:  fragment,
	}

	for _, check := range []struct {
		name  string
		value string
	}{
		{"amount", entry.Amount},
		{"date", entry.Date},
	} {
		if check.value == "" {
			return models.RawEntry{}, &models.ParseError{
				Index:    r.index,
				Reason:   fmt.Sprintf("missing mandatory field '%s'", check.name),
				Fragment: fragment,
			}
		}
	}

	if entry.Phone == "" && entry.Sender == "" && entry.Recipient == "" {
		return models.RawEntry{}, &models.ParseError{
			Index:    r.index,
			Reason:   "entry has no phone, sender or recipient",
			Fragment: fragment,
		}
	}

	return entry, nil
}
