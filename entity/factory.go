package entity

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// Factory builds typed instances from wire data.
type Factory interface {
	Create(t reflect.Type, data map[string]any) (any, error)
}

// New builds a T through f and checks the produced type.
func New[T any](f Factory, data map[string]any) (T, error) {
	var zero T
	obj, err := f.Create(reflect.TypeFor[T](), data)
	if err != nil {
		return zero, err
	}
	out, ok := obj.(T)
	if !ok {
		return zero, invalidEntity("factory built %T, want %T", obj, zero)
	}
	return out, nil
}

var (
	mapParamType = reflect.TypeOf(map[string]any(nil))
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

type constructor struct {
	fn     reflect.Value
	params []string
	mapArg bool
}

// DefaultFactory picks a construction strategy per target type:
//
//  1. a registered map constructor, or a record type, receives the whole map;
//  2. a registered constructor with named parameters receives the matching keys;
//  3. anything else is allocated and keys are assigned to same-named fields.
type DefaultFactory struct {
	hydrator     *Hydrator
	constructors *xsync.MapOf[reflect.Type, constructor]
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory returns a DefaultFactory whose hydrator is bound back to the
// factory, so nested records are built through the same strategies.
func NewFactory(opts ...Option) *DefaultFactory {
	f := &DefaultFactory{
		constructors: xsync.NewMapOf[reflect.Type, constructor](),
	}
	f.hydrator = NewHydrator(append(opts, WithFactory(f))...)
	return f
}

// Hydrator returns the hydrator bound to this factory.
func (f *DefaultFactory) Hydrator() *Hydrator {
	return f.hydrator
}

// Register adds a constructor. fn must return T or (T, error). A function
// taking a single map[string]any receives the whole data map; otherwise
// params names each argument, in order, after the data key it is read from.
func (f *DefaultFactory) Register(fn any, params ...string) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("entity: constructor must be a function, got %T", fn)
	}

	t := v.Type()
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return fmt.Errorf("entity: constructor %s must return T or (T, error)", t)
	}

	c := constructor{fn: v, params: params}
	switch {
	case len(params) == 0 && t.NumIn() == 1 && t.In(0) == mapParamType:
		c.mapArg = true
	case len(params) != t.NumIn():
		return fmt.Errorf("entity: constructor %s takes %d arguments, %d names given", t, t.NumIn(), len(params))
	}

	f.constructors.Store(t.Out(0), c)
	return nil
}

// Create implements Factory.
func (f *DefaultFactory) Create(t reflect.Type, data map[string]any) (any, error) {
	if t == nil {
		return nil, invalidEntity("factory target type is nil")
	}
	if c, ok := f.constructors.Load(t); ok {
		return f.call(c, data)
	}

	st := t
	if t.Kind() == reflect.Pointer {
		st = t.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, invalidEntity("factory cannot build %s", t)
	}

	inst := reflect.New(st)
	if inst.Type().Implements(recordType) {
		if err := f.hydrator.Hydrate(inst.Interface(), data); err != nil {
			return nil, err
		}
	} else if err := f.assignProperties(inst.Elem(), data); err != nil {
		return nil, err
	}

	if t.Kind() == reflect.Pointer {
		return inst.Interface(), nil
	}
	return inst.Elem().Interface(), nil
}

func (f *DefaultFactory) call(c constructor, data map[string]any) (any, error) {
	t := c.fn.Type()

	var args []reflect.Value
	if c.mapArg {
		m := data
		if m == nil {
			m = map[string]any{}
		}
		args = []reflect.Value{reflect.ValueOf(m)}
	} else {
		args = make([]reflect.Value, t.NumIn())
		for i, name := range c.params {
			arg := reflect.New(t.In(i)).Elem()
			if v, ok := data[name]; ok {
				if err := f.hydrator.assign(arg, v); err != nil {
					return nil, invalidEntity("constructor argument %q: %v", name, err)
				}
			}
			args[i] = arg
		}
	}

	out := c.fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// assignProperties copies keys onto fields with the same Go name or json tag.
func (f *DefaultFactory) assignProperties(v reflect.Value, data map[string]any) error {
	info := describe(v.Type())
	for key, value := range data {
		fl := info.exact(key)
		if fl == nil {
			continue
		}
		fv, err := v.FieldByIndexErr(fl.index)
		if err != nil || !fv.CanSet() {
			continue
		}
		if err := f.hydrator.assign(fv, value); err != nil {
			return invalidEntity("assign %s.%s: %v", v.Type().Name(), fl.name, err)
		}
	}
	return nil
}
