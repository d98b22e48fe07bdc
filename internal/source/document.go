package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Document holds the most recently built structure document, both as the
// bytes served to clients and as a generic value for JSONPath selection.
type Document struct {
	mu      sync.RWMutex
	data    []byte
	value   any
	builtAt time.Time
}

// Set replaces the document. data must be valid JSON.
func (d *Document) Set(data []byte) error {
	value, err := oj.Parse(data)
	if err != nil {
		return fmt.Errorf("parse structure: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = data
	d.value = value
	d.builtAt = time.Now()
	return nil
}

// Bytes returns the current document and when it was built. data is nil
// until the first successful Set.
func (d *Document) Bytes() (data []byte, builtAt time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data, d.builtAt
}

// Select evaluates a JSONPath expression such as "$..[?(@.kind == 'file')].route"
// against the document.
func (d *Document) Select(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	d.mu.RLock()
	value := d.value
	d.mu.RUnlock()
	if value == nil {
		return []any{}, nil
	}
	results := x.Get(value)
	if results == nil {
		results = []any{}
	}
	return results, nil
}
