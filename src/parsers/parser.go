// src/parsers/parser.go
package parsers

import (
	"fmt"
	"io"

	"github.com/username/momoflow/src/models"
)

// EntryReader yields raw entries one at a time: a lazy, single forward pass
// over the input document. Next returns io.EOF once the document is
// exhausted and *models.ParseError when a single node is bad; any other
// error means the document itself is unreadable.
type EntryReader interface {
	Next() (models.RawEntry, error)
}

// Parser opens an input document and exposes its entries.
type Parser interface {
	Entries(r io.Reader) (EntryReader, error)
}

var registry = map[string]func() Parser{}

// Register makes a parser constructor available under the given source name.
// Parser packages register themselves from init, like database drivers.
func Register(source string, constructor func() Parser) {
	registry[source] = constructor
}

// GetParser returns a parser for the given source format.
func GetParser(source string) (Parser, error) {
	constructor, ok := registry[source]
	if !ok {
		return nil, fmt.Errorf("no parser registered for source '%s'", source)
	}
	return constructor(), nil
}
