package protocol

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	"github.com/mponcet/gossip-glomers/internal/runtime/jsoncodec"
)

// variantSet maps discriminators to the concrete types registered for one
// interface payload type.
type variantSet struct {
	mu     sync.RWMutex
	byType map[string]reflect.Type
}

var (
	unions         sync.Map // reflect.Type (interface) -> *variantSet
	requiredFields sync.Map // reflect.Type (struct) -> []string
)

// RegisterVariants declares the concrete payloads an interface payload type P
// accepts. Decoding a Message[P] picks the variant whose Type matches the body's
// type discriminator and rejects any other discriminator.
//
//	type Request interface{ protocol.Payload }
//	protocol.RegisterVariants[Request](Broadcast{}, Read{}, Topology{})
//
// Registering a discriminator twice keeps the last type.
func RegisterVariants[P Payload](variants ...P) {
	iface := reflect.TypeFor[P]()
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("glomers: RegisterVariants requires an interface payload type, got %s", iface))
	}

	actual, _ := unions.LoadOrStore(iface, &variantSet{byType: make(map[string]reflect.Type)})
	set := actual.(*variantSet)

	set.mu.Lock()
	defer set.mu.Unlock()
	for _, v := range variants {
		if isNilPayload(v) {
			panic("glomers: RegisterVariants given a nil variant")
		}
		set.byType[v.Type()] = reflect.TypeOf(v)
	}
}

// Variants lists the discriminators accepted by P in sorted order. For a concrete
// payload type it is the single value of its Type method.
func Variants[P Payload]() []string {
	t := reflect.TypeFor[P]()
	if t.Kind() != reflect.Interface {
		return []string{discriminator(t)}
	}
	actual, ok := unions.Load(t)
	if !ok {
		return nil
	}
	set := actual.(*variantSet)
	set.mu.RLock()
	defer set.mu.RUnlock()

	names := make([]string, 0, len(set.byType))
	for name := range set.byType {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupVariant(iface reflect.Type, typ string) (reflect.Type, bool) {
	actual, ok := unions.Load(iface)
	if !ok {
		return nil, false
	}
	set := actual.(*variantSet)
	set.mu.RLock()
	defer set.mu.RUnlock()
	t, ok := set.byType[typ]
	return t, ok
}

func decodePayload[P Payload](typ string, data []byte, fields map[string]jsoncodec.RawMessage) (P, error) {
	var zero P
	target := reflect.TypeFor[P]()

	if target.Kind() == reflect.Interface {
		concrete, ok := lookupVariant(target, typ)
		if !ok {
			return zero, fmt.Errorf("%w %q", errspkg.ErrUnknownVariant, typ)
		}
		v, err := decodeVariant(concrete, data, fields)
		if err != nil {
			return zero, err
		}
		return v.Interface().(P), nil
	}

	if want := discriminator(target); want != typ {
		return zero, fmt.Errorf("%w %q, expected %q", errspkg.ErrUnknownVariant, typ, want)
	}
	v, err := decodeVariant(target, data, fields)
	if err != nil {
		return zero, err
	}
	return v.Interface().(P), nil
}

// decodeVariant decodes data into a fresh value of t, which may be a struct or a
// pointer to one.
func decodeVariant(t reflect.Type, data []byte, fields map[string]jsoncodec.RawMessage) (reflect.Value, error) {
	base := t
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
	}

	ptr := reflect.New(base)
	if err := jsoncodec.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	if err := checkRequired(base, fields); err != nil {
		return reflect.Value{}, err
	}

	if t.Kind() == reflect.Pointer {
		return ptr, nil
	}
	return ptr.Elem(), nil
}

func discriminator(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(Payload).Type()
	}
	return reflect.New(t).Elem().Interface().(Payload).Type()
}

func checkRequired(t reflect.Type, fields map[string]jsoncodec.RawMessage) error {
	for _, name := range requiredFieldsOf(t) {
		raw, ok := fields[name]
		if !ok || isJSONNull(raw) {
			return fmt.Errorf("%w: %s", errspkg.ErrMissingField, name)
		}
	}
	return nil
}

// requiredFieldsOf lists the JSON member names a payload must carry: every
// exported field that is neither a pointer nor tagged omitempty/omitzero.
// Untagged embedded structs contribute their own fields.
func requiredFieldsOf(t reflect.Type) []string {
	if t.Kind() != reflect.Struct {
		return nil
	}
	if cached, ok := requiredFields.Load(t); ok {
		return cached.([]string)
	}

	var names []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			embedded := f.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			names = append(names, requiredFieldsOf(embedded)...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if f.Type.Kind() == reflect.Pointer || hasOption(opts, "omitempty") || hasOption(opts, "omitzero") {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names = append(names, name)
	}

	requiredFields.Store(t, names)
	return names
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}
