package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/terrastat/landcover-cli/pkg/engine"
)

// mockEngine implements engine.Client for testing.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Evaluate(ctx context.Context, expr *engine.Expression) (*engine.Result, error) {
	args := m.Called(ctx, expr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Result), args.Error(1)
}

// exprWithOp matches any expression whose root op equals op.
func exprWithOp(op string) any {
	return mock.MatchedBy(func(e *engine.Expression) bool {
		return e != nil && e.Op == op
	})
}

// containsOp reports whether the expression graph contains a node with op.
func containsOp(e *engine.Expression, op string) bool {
	if e == nil {
		return false
	}
	if e.Op == op {
		return true
	}
	for _, v := range e.Args {
		switch child := v.(type) {
		case *engine.Expression:
			if containsOp(child, op) {
				return true
			}
		case []*engine.Expression:
			for _, c := range child {
				if containsOp(c, op) {
					return true
				}
			}
		}
	}
	return false
}

// sizeOf matches a collection.size expression; masked selects whether the
// counted collection went through the scene mask.
func sizeOf(masked bool) any {
	return mock.MatchedBy(func(e *engine.Expression) bool {
		if e == nil || e.Op != "collection.size" {
			return false
		}
		return containsOp(e, "collection.mask_scene") == masked
	})
}

// visualizeOf matches an image.visualize expression whose first rendered
// band is band.
func visualizeOf(band string) any {
	return mock.MatchedBy(func(e *engine.Expression) bool {
		if e == nil || e.Op != "image.visualize" {
			return false
		}
		bands, ok := e.Args["bands"].([]string)
		return ok && len(bands) > 0 && bands[0] == band
	})
}

// histogramOf matches an image.histogram expression over the named band.
func histogramOf(band string) any {
	return mock.MatchedBy(func(e *engine.Expression) bool {
		return e != nil && e.Op == "image.histogram" && e.Args["band"] == band
	})
}
