package usage

import "strings"

// Sources encode variants into string-typed composite keys with a documented
// grammar:
//
//	owner key:     "user#<id>"                  or a bare id
//	dimension key: "engine#<label>#<period>"    or a bare value
//
// Decoding is a tagged step: callers branch on the decoded kind, and an
// undecodable value is a first-class Unparseable variant rather than a silent
// fall-through to some other field.

// KeyKind tags the outcome of decoding a composite key.
type KeyKind int

const (
	// KeyPlain is a bare, non-composite value.
	KeyPlain KeyKind = iota
	// KeyComposite is a value matching the composite grammar.
	KeyComposite
	// KeyUnparseable is a value that is neither.
	KeyUnparseable
)

// OwnerKey is a decoded owner identifier.
type OwnerKey struct {
	Kind KeyKind
	Raw  string
	ID   string
}

// DecodeOwnerKey decodes an owner-field value. Composite values yield the
// segment after the first '#'; bare values pass through verbatim.
func DecodeOwnerKey(raw string) OwnerKey {
	if raw == "" {
		return OwnerKey{Kind: KeyUnparseable, Raw: raw}
	}
	if !strings.Contains(raw, "#") {
		return OwnerKey{Kind: KeyPlain, Raw: raw, ID: raw}
	}
	id := raw[strings.Index(raw, "#")+1:]
	if id == "" {
		return OwnerKey{Kind: KeyUnparseable, Raw: raw}
	}
	return OwnerKey{Kind: KeyComposite, Raw: raw, ID: id}
}

// DimensionKey is a decoded dimension value.
type DimensionKey struct {
	Kind   KeyKind
	Raw    string
	Label  string
	Period string
}

// DecodeDimensionKey decodes a dimension-field value. Only the full 3-part
// composite yields a label; a bare value is tagged plain, and anything else
// is unparseable so the normalizer can fall back deliberately.
func DecodeDimensionKey(raw string) DimensionKey {
	if raw == "" {
		return DimensionKey{Kind: KeyUnparseable, Raw: raw}
	}
	if !strings.Contains(raw, "#") {
		return DimensionKey{Kind: KeyPlain, Raw: raw}
	}
	parts := strings.Split(raw, "#")
	if len(parts) != 3 || parts[1] == "" {
		return DimensionKey{Kind: KeyUnparseable, Raw: raw}
	}
	return DimensionKey{Kind: KeyComposite, Raw: raw, Label: parts[1], Period: parts[2]}
}
