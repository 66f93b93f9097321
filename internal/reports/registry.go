// Package reports defines the read-only analytical queries run over the
// medallion layers and executes them with a bounded worker pool.
package reports

import (
	"fmt"
	"sync"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
)

// Definition is a named report query.
type Definition struct {
	// Name is the report identifier used on the command line.
	Name string

	// Layer is the layer the report reads.
	Layer catalog.Layer

	// Description says what the report answers.
	Description string

	// Query builds the report query.
	Query func() *sqlq.Query
}

// Build renders the report query.
func (d Definition) Build() (sqlq.Statement, error) {
	st, err := d.Query().Build()
	if err != nil {
		return sqlq.Statement{}, fmt.Errorf("report %s: %w", d.Name, err)
	}
	return st, nil
}

var (
	registry = make(map[string]Definition)
	order    []string
	mu       sync.RWMutex
)

// Register adds a report to the registry. Registering a name twice replaces
// the definition but keeps its original position.
func Register(def Definition) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[def.Name]; !ok {
		order = append(order, def.Name)
	}
	registry[def.Name] = def
}

// Get retrieves a report by name.
func Get(name string) (Definition, error) {
	mu.RLock()
	defer mu.RUnlock()

	def, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown report: %s", name)
	}
	return def, nil
}

// List returns all report names in definition order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), order...)
}

// All returns all reports in definition order.
func All() []Definition {
	mu.RLock()
	defer mu.RUnlock()

	defs := make([]Definition, 0, len(order))
	for _, name := range order {
		defs = append(defs, registry[name])
	}
	return defs
}

// ByLayer returns the reports reading one layer, in definition order.
func ByLayer(layer catalog.Layer) []Definition {
	var defs []Definition
	for _, def := range All() {
		if def.Layer == layer {
			defs = append(defs, def)
		}
	}
	return defs
}

// Select resolves report names; no names selects every report.
func Select(names []string) ([]Definition, error) {
	if len(names) == 0 {
		return All(), nil
	}
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, err := Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
