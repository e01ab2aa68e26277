package punit

// ValueKind tags the shapes a flexible record value can take
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueBool
	ValueString
	ValueStrings
	ValueUnrecognized
)

func (k ValueKind) String() string {
	switch k {
	case ValueAbsent:
		return "absent"
	case ValueBool:
		return "bool"
	case ValueString:
		return "string"
	case ValueStrings:
		return "strings"
	default:
		return "unrecognized"
	}
}

// Value is a record value classified into exactly one ValueKind
type Value struct {
	Kind    ValueKind
	Bool    bool
	String  string
	Strings []string
	Raw     interface{}
}

// Classify inspects a raw record value once so callers can switch on Kind.
// A nil value is absent. Generic slices count as strings only if every element is a string.
func Classify(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Value{Kind: ValueAbsent}
	case bool:
		return Value{Kind: ValueBool, Bool: t, Raw: v}
	case string:
		return Value{Kind: ValueString, String: t, Raw: v}
	case []string:
		return Value{Kind: ValueStrings, Strings: append([]string{}, t...), Raw: v}
	case []interface{}:
		strs := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return Value{Kind: ValueUnrecognized, Raw: v}
			}
			strs = append(strs, s)
		}
		return Value{Kind: ValueStrings, Strings: strs, Raw: v}
	default:
		return Value{Kind: ValueUnrecognized, Raw: v}
	}
}
