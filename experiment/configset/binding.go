package configset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Binding is one configuration override destined for a stage's own
// config language. It stays a structured pair internally and is only
// rendered to text at the process boundary.
type Binding struct {
	Key   string
	Value string
}

// String renders the binding in the "key = value" form stages expect.
func (b Binding) String() string {
	return fmt.Sprintf("%s = %s", b.Key, b.Value)
}

// BindString builds a binding whose value is a quoted string.
func BindString(key, value string) Binding {
	return Binding{Key: key, Value: fmt.Sprintf("'%s'", value)}
}

// BindInt builds a binding with a bare integer value.
func BindInt(key string, value int) Binding {
	return Binding{Key: key, Value: strconv.Itoa(value)}
}

// BindSeed builds a binding carrying a derived stage seed.
func BindSeed(key string, seed uint32) Binding {
	return Binding{Key: key, Value: strconv.FormatUint(uint64(seed), 10)}
}

// Parse splits a raw "key=value" override into a Binding. Whitespace
// around the key and value is dropped; the value is kept verbatim
// otherwise, quoting included.
func Parse(raw string) (Binding, error) {
	i := strings.Index(raw, "=")
	if i < 0 {
		return Binding{}, errors.Errorf("invalid binding %q: expected key=value", raw)
	}
	key := strings.TrimSpace(raw[:i])
	if key == "" {
		return Binding{}, errors.Errorf("invalid binding %q: empty key", raw)
	}
	return Binding{Key: key, Value: strings.TrimSpace(raw[i+1:])}, nil
}

// ParseAll parses each raw override in order.
func ParseAll(raws []string) (Bindings, error) {
	var bindings Bindings
	for _, raw := range raws {
		b, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// Bindings is an ordered override list. Order is preserved end to end
// since later overrides take precedence in most config languages.
type Bindings []Binding

// Strings renders each binding in order.
func (bs Bindings) Strings() []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.String())
	}
	return out
}
