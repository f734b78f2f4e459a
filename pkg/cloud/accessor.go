package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"
)

// ErrNoProperty is returned when an item has no field, method or key with
// the requested name.
var ErrNoProperty = errors.New("cloud: no such property")

// Accessor reads weights from and writes sizes to collection items.
type Accessor interface {
	Get(item any, name string) (float64, error)
	Set(item any, name string, value float64) error
}

// ReflectAccessor works on structs, pointers to structs and string-keyed
// maps.
//
// Reads try, in order: a struct field matching the name (Go name, `cloud`
// tag or `json` tag, so "font-size" and "count_pictures" both work), a
// method with no arguments returning a number and optionally an error, and a
// map key. Writes try a settable struct field, a Set<Name>(float64) method,
// and a map key. Struct items must be addressable to be written: pass
// pointers, or a slice of structs to Annotate.
type ReflectAccessor struct{}

var jsonNumberType = reflect.TypeOf(json.Number(""))

// Get implements Accessor.
func (ReflectAccessor) Get(item any, name string) (float64, error) {
	v, err := lookup(reflect.ValueOf(item), name)
	if err != nil {
		return 0, err
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", name, err)
	}
	return f, nil
}

// Set implements Accessor.
func (ReflectAccessor) Set(item any, name string, value float64) error {
	return assign(reflect.ValueOf(item), name, value)
}

// Property returns the raw value of a named field, method result or map key.
func Property(item any, name string) (any, error) {
	v, err := lookup(reflect.ValueOf(item), name)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func lookup(v reflect.Value, name string) (reflect.Value, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w %q: item is nil", ErrNoProperty, name)
	}
	orig := v
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w %q: item is nil", ErrNoProperty, name)
		}
		v = v.Elem()
	}

	if v.Kind() == reflect.Struct {
		if idx, ok := findField(v.Type(), name); ok {
			if f, err := v.FieldByIndexErr(idx); err == nil {
				return f, nil
			}
		}
	}

	if m := findMethod(orig, v, name, getterNames(name)); m.IsValid() {
		return callGetter(m, name)
	}

	if v.Kind() == reflect.Map {
		key, ok := mapKey(v.Type(), name)
		if ok {
			if val := v.MapIndex(key); val.IsValid() {
				return unwrap(val), nil
			}
		}
	}

	return reflect.Value{}, fmt.Errorf("%w %q on %s", ErrNoProperty, name, orig.Type())
}

func assign(v reflect.Value, name string, value float64) error {
	v = unwrap(v)
	if !v.IsValid() {
		return fmt.Errorf("cloud: cannot set %q on nil item", name)
	}
	orig := v
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fmt.Errorf("cloud: cannot set %q on nil item", name)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if idx, ok := findField(v.Type(), name); ok {
			if f, err := v.FieldByIndexErr(idx); err == nil && f.CanSet() {
				return setNumber(f, value)
			}
		}
		if m := findMethod(orig, v, name, []string{"Set" + exportedName(name)}); m.IsValid() {
			return callSetter(m, name, value)
		}
		if !v.CanAddr() {
			return fmt.Errorf("cloud: cannot set %q on unaddressable %s; pass a pointer", name, v.Type())
		}
		return fmt.Errorf("%w %q on %s", ErrNoProperty, name, orig.Type())

	case reflect.Map:
		if v.IsNil() {
			return fmt.Errorf("cloud: cannot set %q on nil map", name)
		}
		key, ok := mapKey(v.Type(), name)
		if !ok {
			return fmt.Errorf("cloud: cannot set %q: map keys are %s", name, v.Type().Key())
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := setNumber(elem, value); err != nil {
			return err
		}
		v.SetMapIndex(key, elem)
		return nil
	}

	return fmt.Errorf("cloud: cannot set %q on %s", name, orig.Type())
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func findField(t reflect.Type, name string) ([]int, bool) {
	exported := exportedName(name)
	var folded []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if f.Name == name || f.Name == exported || tagName(f, "cloud") == name || tagName(f, "json") == name {
			return f.Index, true
		}
		if folded == nil && strings.EqualFold(f.Name, name) {
			folded = f.Index
		}
	}
	return folded, folded != nil
}

func tagName(f reflect.StructField, key string) string {
	tag, ok := f.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func findMethod(orig, v reflect.Value, name string, candidates []string) reflect.Value {
	receivers := []reflect.Value{orig}
	if v.CanAddr() {
		receivers = append(receivers, v.Addr())
	}
	for _, r := range receivers {
		for _, n := range candidates {
			if m := r.MethodByName(n); m.IsValid() {
				return m
			}
		}
	}
	return reflect.Value{}
}

func getterNames(name string) []string {
	if exported := exportedName(name); exported != name {
		return []string{name, exported}
	}
	return []string{name}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callGetter(m reflect.Value, name string) (reflect.Value, error) {
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
		return reflect.Value{}, fmt.Errorf("cloud: method %q must take no arguments and return a value", name)
	}
	if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
		return reflect.Value{}, fmt.Errorf("cloud: method %q second result must be an error", name)
	}
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("calling %q: %w", name, out[1].Interface().(error))
	}
	return unwrap(out[0]), nil
}

func callSetter(m reflect.Value, name string, value float64) error {
	mt := m.Type()
	if mt.NumIn() != 1 {
		return fmt.Errorf("cloud: setter for %q must take one argument", name)
	}
	arg := reflect.New(mt.In(0)).Elem()
	if err := setNumber(arg, value); err != nil {
		return fmt.Errorf("cloud: setter for %q: %w", name, err)
	}
	out := m.Call([]reflect.Value{arg})
	if n := len(out); n > 0 && mt.Out(n-1).Implements(errorType) && !out[n-1].IsNil() {
		return fmt.Errorf("calling setter for %q: %w", name, out[n-1].Interface().(error))
	}
	return nil
}

func mapKey(t reflect.Type, name string) (reflect.Value, bool) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(name).Convert(t.Key()), true
}

func toFloat(v reflect.Value) (float64, error) {
	v = unwrap(v)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return 0, errors.New("value is nil")
		}
		v = unwrap(v.Elem())
	}
	if !v.IsValid() {
		return 0, errors.New("value is nil")
	}
	if v.Type() == jsonNumberType {
		return v.Interface().(json.Number).Float64()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return 0, fmt.Errorf("value of type %s is not a number", v.Type())
}

func setNumber(f reflect.Value, value float64) error {
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		f.SetFloat(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.SetInt(int64(math.Round(value)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if value < 0 {
			return fmt.Errorf("cannot store %g in %s", value, f.Type())
		}
		f.SetUint(uint64(math.Round(value)))
	case reflect.Interface:
		fv := reflect.ValueOf(value)
		if !fv.Type().AssignableTo(f.Type()) {
			return fmt.Errorf("cannot store a number in %s", f.Type())
		}
		f.Set(fv)
	default:
		return fmt.Errorf("cannot store a number in %s", f.Type())
	}
	return nil
}

// exportedName turns "count_pictures", "font-size" or "tagSize" into the Go
// identifiers CountPictures, FontSize and TagSize.
func exportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
