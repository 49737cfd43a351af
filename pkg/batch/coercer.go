// Package batch applies an integer conversion function to one property of
// every entity in a property store.
//
// This is the offline counterpart of running
//
//	MATCH (n) WHERE n.age IS NOT NULL SET n.age = toIntegerOrNull(n.age)
//
// against a graph: the property is scanned, each value is passed through the
// function on a bounded worker pool, and the results are optionally written
// back. Per-value function failures (overflow, unsupported kinds under the
// strict variant) are collected in the Report; storage failures abort the run.
//
// Example:
//
//	c := &batch.Coercer{
//		Engine:   engine,
//		Registry: functions.DefaultRegistry(),
//		Function: "toIntegerOrNull",
//		Workers:  8,
//		Write:    true,
//	}
//	report, err := c.Run(ctx, "age")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report)
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orneryd/cypherfn/pkg/ast"
	"github.com/orneryd/cypherfn/pkg/functions"
	"github.com/orneryd/cypherfn/pkg/storage"
	"github.com/orneryd/cypherfn/pkg/value"
)

// ErrNoEngine is returned by Run when the Coercer has no storage engine.
var ErrNoEngine = errors.New("batch: no storage engine")

// DefaultBatchSize is the number of values written per BulkPut.
const DefaultBatchSize = 1000

// Coercer runs one function over one property.
//
// The zero values of Registry, Function, Workers, BatchSize and Logger fall
// back to functions.DefaultRegistry(), "toIntegerOrNull", 1,
// DefaultBatchSize and log.Default().
type Coercer struct {
	Engine    storage.Engine
	Registry  *functions.Registry
	Function  string
	Workers   int
	Write     bool
	BatchSize int
	Logger    *log.Logger
	Debug     bool // log every failed value
}

// Report summarises a Run.
type Report struct {
	Property  string
	Function  string
	Scanned   int // values read from the store
	Converted int // calls that produced an integer
	Nulls     int // calls that produced null
	Failed    int // calls that returned an error
	Updated   int // values rewritten (only with Write)
	Removed   int // values deleted because the result was null (only with Write)
	Errors    map[storage.EntityID]error
	Duration  time.Duration
}

// String renders a one-line summary.
func (r *Report) String() string {
	return fmt.Sprintf("%s(%s): scanned=%d converted=%d nulls=%d failed=%d updated=%d removed=%d in %v",
		r.Function, r.Property, r.Scanned, r.Converted, r.Nulls, r.Failed, r.Updated, r.Removed,
		r.Duration.Round(time.Millisecond))
}

// FailedEntities returns the entities whose call failed, sorted.
func (r *Report) FailedEntities() []storage.EntityID {
	ids := make([]storage.EntityID, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// result is one successful call awaiting write-back.
type result struct {
	entity   storage.EntityID
	original value.Value
	coerced  value.Value
}

// Run scans property and applies the configured function to every value.
//
// With Write set, integer results that differ from the stored value are
// written back in batches, and null results remove the property, matching
// Cypher's SET n.p = null. Entities whose call failed are left untouched.
//
// Run returns an error only when the function cannot be resolved, the
// context is cancelled, or the store fails. In every other case the Report
// carries the per-entity outcome.
func (c *Coercer) Run(ctx context.Context, property string) (*Report, error) {
	if c.Engine == nil {
		return nil, ErrNoEngine
	}
	reg := c.Registry
	if reg == nil {
		reg = functions.DefaultRegistry()
	}
	name := c.Function
	if name == "" {
		name = "toIntegerOrNull"
	}
	fn, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}

	start := time.Now()
	report := &Report{
		Property: property,
		Function: name,
		Errors:   make(map[storage.EntityID]error),
	}
	expr := ast.NewFunctionCall(name)
	evalCtx := functions.NewEvaluationContext()

	var (
		mu      sync.Mutex
		results []result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	scanErr := c.Engine.ScanProperty(property, func(p storage.Property) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		report.Scanned++

		g.Go(func() error {
			v, err := fn.Call(gctx, evalCtx, expr, []value.Value{p.Value})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors[p.Entity] = err
				if c.Debug {
					logger.Printf("[DEBUG] %s.%s = %s: %v", p.Entity, property, p.Value, err)
				}
				return nil
			}
			if v.IsNull() {
				report.Nulls++
			} else {
				report.Converted++
			}
			results = append(results, result{entity: p.Entity, original: p.Value, coerced: v})
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	if scanErr != nil {
		return nil, fmt.Errorf("scanning %s: %w", property, scanErr)
	}
	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.Write {
		if err := c.writeBack(ctx, property, results, report); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	logger.Printf("🔢 %s", report)
	return report, nil
}

// writeBack stores changed integers and removes nulled properties.
func (c *Coercer) writeBack(ctx context.Context, property string, results []result, report *Report) error {
	sort.Slice(results, func(i, j int) bool { return results[i].entity < results[j].entity })

	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	pending := make([]storage.Property, 0, size)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := c.Engine.BulkPut(pending); err != nil {
			return fmt.Errorf("writing %s: %w", property, err)
		}
		report.Updated += len(pending)
		pending = pending[:0]
		return nil
	}

	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.coerced.IsNull() {
			if r.original.IsNull() {
				continue
			}
			err := c.Engine.Delete(r.entity, property)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("removing %s.%s: %w", r.entity, property, err)
			}
			report.Removed++
			continue
		}
		if value.Equal(r.original, r.coerced) {
			continue
		}
		pending = append(pending, storage.Property{Entity: r.entity, Name: property, Value: r.coerced})
		if len(pending) >= size {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
