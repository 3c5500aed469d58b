package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrInvalidFilter indicates a filter expression that does not compile to a
// boolean over Item.
var ErrInvalidFilter = errors.New("feed: invalid filter")

// Filter selects items with a boolean expression over Item fields, for
// example `Bookmarked && AuthorName != ""`.
type Filter struct {
	source  string
	program *vm.Program
}

// CompileFilter compiles source. An empty source matches every item.
func CompileFilter(source string) (*Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(source, expr.Env(Item{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidFilter, source, err)
	}

	return &Filter{source: source, program: program}, nil
}

// String returns the filter source.
func (f *Filter) String() string {
	return f.source
}

// Apply returns the items matching the filter, in order.
func (f *Filter) Apply(items []Item) ([]Item, error) {
	if f == nil || f.program == nil {
		return items, nil
	}

	out := make([]Item, 0, len(items))
	for _, item := range items {
		matched, err := expr.Run(f.program, item)
		if err != nil {
			return nil, fmt.Errorf("filter %q on item %d: %w", f.source, item.ID, err)
		}
		if ok, _ := matched.(bool); ok {
			out = append(out, item)
		}
	}

	return out, nil
}
