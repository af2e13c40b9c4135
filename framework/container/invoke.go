package container

import (
	"context"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// ── Instance / Injectable ─────────────────────────────────────────────────────

func (s instance) produce(context.Context, bool, Bag) (any, Phase, error) {
	return s.value, "", nil
}

func (s injectable) produce(ctx context.Context, _ bool, deps Bag) (any, Phase, error) {
	if err := s.target.Inject(ctx, deps); err != nil {
		return nil, PhaseInject, err
	}
	return s.target, PhaseInject, nil
}

// ── Factory ───────────────────────────────────────────────────────────────────

func (s factory) produce(ctx context.Context, positional bool, deps Bag) (any, Phase, error) {
	t := s.fn.Type()

	in := make([]reflect.Value, 0, t.NumIn())
	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		in = append(in, reflect.ValueOf(&ctx).Elem())
		first = 1
	}

	var (
		args []reflect.Value
		err  error
	)
	switch {
	case positional:
		args, err = positionalArgs(t, first, Values(deps))
	case Len(deps) > 0:
		args, err = namedArgs(t, first, deps)
	default:
		args = zeroArgs(t, first)
	}
	if err != nil {
		return nil, PhaseFactory, err
	}

	out := s.fn.Call(append(in, args...))
	if len(out) == 2 && !out[1].IsNil() {
		return nil, PhaseFactory, out[1].Interface().(error)
	}
	return out[0].Interface(), PhaseFactory, nil
}

// positionalArgs maps values onto the parameters after first. Missing trailing
// values are zero; extra values go to a variadic tail or fail with ErrArity.
func positionalArgs(t reflect.Type, first int, values []any) ([]reflect.Value, error) {
	fixed := t.NumIn() - first
	if t.IsVariadic() {
		fixed--
	}
	if !t.IsVariadic() && len(values) > fixed {
		return nil, errors.Wrapf(ErrArity, "%s takes %d dependencies, got %d", t, fixed, len(values))
	}

	args := make([]reflect.Value, 0, max(fixed, len(values)))
	for i := 0; i < fixed; i++ {
		pt := t.In(first + i)
		if i >= len(values) {
			args = append(args, reflect.Zero(pt))
			continue
		}
		v, err := argValue(pt, values[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		args = append(args, v)
	}
	if t.IsVariadic() {
		et := t.In(t.NumIn() - 1).Elem()
		for i := fixed; i < len(values); i++ {
			v, err := argValue(et, values[i])
			if err != nil {
				return nil, errors.Wrapf(err, "argument %d", i)
			}
			args = append(args, v)
		}
	}
	return args, nil
}

// namedArgs passes the whole bag as the first parameter after first.
func namedArgs(t reflect.Type, first int, deps Bag) ([]reflect.Value, error) {
	if t.NumIn() == first {
		return nil, nil
	}
	last := t.NumIn() - 1

	pt := t.In(first)
	if t.IsVariadic() && first == last {
		pt = pt.Elem()
	}
	v, err := bagValue(pt, deps)
	if err != nil {
		return nil, err
	}

	args := []reflect.Value{v}
	for i := first + 1; i <= last; i++ {
		if t.IsVariadic() && i == last {
			break
		}
		args = append(args, reflect.Zero(t.In(i)))
	}
	return args, nil
}

func zeroArgs(t reflect.Type, first int) []reflect.Value {
	n := t.NumIn()
	if t.IsVariadic() {
		n--
	}
	args := make([]reflect.Value, 0, n)
	for i := first; i < n; i++ {
		args = append(args, reflect.Zero(t.In(i)))
	}
	return args
}

func argValue(pt reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(pt), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(pt) {
		return rv, nil
	}
	return reflect.Value{}, errors.Wrapf(ErrArgumentType, "cannot use %s as %s", rv.Type(), pt)
}

// bagValue adapts a bag to a parameter type: direct when assignable (Named,
// map[string]any, Bag, any), decoded when the parameter is a struct or *struct.
func bagValue(pt reflect.Type, deps Bag) (reflect.Value, error) {
	rv := reflect.ValueOf(deps)
	if rv.Type().AssignableTo(pt) {
		return rv, nil
	}

	target, ptr := pt, false
	if target.Kind() == reflect.Pointer {
		target, ptr = target.Elem(), true
	}
	if target.Kind() != reflect.Struct {
		return reflect.Value{}, errors.Wrapf(ErrArgumentType, "cannot pass dependency bag as %s", pt)
	}

	dst := reflect.New(target)
	if err := fillNamed(dst.Elem(), deps); err != nil {
		return reflect.Value{}, err
	}
	if ptr {
		return dst, nil
	}
	return dst.Elem(), nil
}

// ── Constructible ─────────────────────────────────────────────────────────────

func (s constructible) produce(_ context.Context, positional bool, deps Bag) (any, Phase, error) {
	ptr := reflect.New(s.typ)

	var err error
	switch {
	case positional:
		err = fillPositional(ptr.Elem(), Values(deps))
	case Len(deps) > 0:
		err = fillNamed(ptr.Elem(), deps)
	}
	if err != nil {
		return nil, PhaseConstruct, err
	}
	return ptr.Interface(), PhaseConstruct, nil
}

func exportedFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && f.Tag.Get("di") != "-" {
			fields = append(fields, f)
		}
	}
	return fields
}

// fillPositional assigns values to exported fields in declaration order.
func fillPositional(dst reflect.Value, values []any) error {
	fields := exportedFields(dst.Type())
	if len(values) > len(fields) {
		return errors.Wrapf(ErrArity, "%s has %d fields, got %d dependencies", dst.Type(), len(fields), len(values))
	}
	for i, v := range values {
		if err := setField(dst.FieldByIndex(fields[i].Index), v); err != nil {
			return errors.Wrapf(err, "field %s", fields[i].Name)
		}
	}
	return nil
}

// fillNamed assigns each exported field from the key named by its `di` tag,
// or by its field name compared case-insensitively. Unmatched keys are ignored.
func fillNamed(dst reflect.Value, deps Bag) error {
	named, ok := deps.(Named)
	if !ok {
		return errors.Wrapf(ErrArgumentType, "cannot decode positional dependencies into %s", dst.Type())
	}
	for _, f := range exportedFields(dst.Type()) {
		v, found := lookupField(named, f)
		if !found {
			continue
		}
		if err := setField(dst.FieldByIndex(f.Index), v); err != nil {
			return errors.Wrapf(err, "field %s", f.Name)
		}
	}
	return nil
}

func lookupField(named Named, f reflect.StructField) (any, bool) {
	if tag := f.Tag.Get("di"); tag != "" {
		v, ok := named[tag]
		return v, ok
	}
	if v, ok := named[f.Name]; ok {
		return v, true
	}
	for k, v := range named {
		if strings.EqualFold(k, f.Name) {
			return v, true
		}
	}
	return nil, false
}

// setField keeps identity for assignable values and falls back to mapstructure
// for shape conversions such as a Named bag into a nested config struct.
func setField(field reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "di",
		Result:  field.Addr().Interface(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(ErrArgumentType, "cannot use %s as %s: %v", rv.Type(), field.Type(), err)
	}
	return nil
}
