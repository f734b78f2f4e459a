package cloud

import (
	"fmt"
	"reflect"
)

// Annotate reads weightProp from every element of items, computes sizes over
// the whole collection and writes them to sizeProp. items may be a slice or
// array (or a pointer to one) of maps, structs or pointers to structs.
// A nil acc uses ReflectAccessor. An empty collection is left untouched.
func Annotate(items any, weightProp, sizeProp string, opts Options, acc Accessor) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if acc == nil {
		acc = ReflectAccessor{}
	}

	list, err := Elements(items)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}

	weights := make([]float64, len(list))
	for i, item := range list {
		w, err := acc.Get(item, weightProp)
		if err != nil {
			return fmt.Errorf("item #%d: reading %q: %w", i, weightProp, err)
		}
		weights[i] = w
	}

	sizes, err := Sizes(weights, opts)
	if err != nil {
		return err
	}

	for i, item := range list {
		if err := acc.Set(item, sizeProp, sizes[i]); err != nil {
			return fmt.Errorf("item #%d: writing %q: %w", i, sizeProp, err)
		}
	}
	return nil
}

// FromItems builds a Cloud from arbitrary items. Labels are formatted with
// fmt; sizes are left at zero until Compute is called.
func FromItems(items any, labelProp, weightProp string, acc Accessor) (Cloud, error) {
	if acc == nil {
		acc = ReflectAccessor{}
	}
	list, err := Elements(items)
	if err != nil {
		return nil, err
	}

	c := make(Cloud, 0, len(list))
	for i, item := range list {
		label, err := Property(item, labelProp)
		if err != nil {
			return nil, fmt.Errorf("item #%d: reading %q: %w", i, labelProp, err)
		}
		w, err := acc.Get(item, weightProp)
		if err != nil {
			return nil, fmt.Errorf("item #%d: reading %q: %w", i, weightProp, err)
		}
		c = append(c, &Tag{Label: fmt.Sprint(label), Weight: w})
	}
	return c, nil
}

// Elements flattens a slice or array into its items. Struct elements of a
// slice are returned as pointers so that they can be written in place.
func Elements(items any) ([]any, error) {
	v := reflect.ValueOf(items)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, fmt.Errorf("cloud: expected a list of items, got %s", v.Type())
	}

	out := make([]any, v.Len())
	for i := range out {
		e := v.Index(i)
		if e.Kind() == reflect.Struct && e.CanAddr() {
			out[i] = e.Addr().Interface()
			continue
		}
		out[i] = e.Interface()
	}
	return out, nil
}
