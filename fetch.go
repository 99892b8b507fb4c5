package radar

import (
	"context"
	"fmt"
	"reflect"

	"github.com/krisalay/package-radar/types"
)

// Fetch is the typed form of RetrieveOrFetch. A cached value of a different
// type is reported as ErrTypeMismatch and counted as an error. A nil slice,
// map, pointer or interface from fetch is not stored, like an untyped nil.
func Fetch[T any](
	ctx context.Context,
	c *CacheService,
	ns types.Namespace,
	key string,
	fetch func(context.Context) (T, error),
	opts ...FetchOption,
) (T, error) {
	var zero T
	if fetch == nil {
		return zero, ErrNilFetch
	}

	val, err := c.RetrieveOrFetch(ctx, ns, key, func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil || isNil(v) {
			return nil, err
		}
		return v, nil
	}, opts...)
	if err != nil || val == nil {
		return zero, err
	}

	v, ok := val.(T)
	if !ok {
		c.engine.Metrics.Error()
		return zero, fmt.Errorf("%w: %s/%s holds %T, want %T", ErrTypeMismatch, ns, key, val, zero)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
