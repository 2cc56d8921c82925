package chunk

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Extension is the marker that follows every component token.
const Extension = "pak"

const (
	prefixBase  = "re_chunk_"
	prefixDLC   = "re_dlc_"
	prefixSub   = "sub_"
	prefixPatch = "patch_"
)

// Kind is the type of a name component. The declaration order is the
// comparison priority.
type Kind uint8

const (
	KindBase Kind = iota
	KindDLC
	KindSub
	KindPatch
	KindSubPatch
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindDLC:
		return "dlc"
	case KindSub:
		return "sub"
	case KindPatch:
		return "patch"
	case KindSubPatch:
		return "sub-patch"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Component is one typed element of a Name. DLC components carry their id
// in DLC; all other kinds use ID.
type Component struct {
	Kind Kind
	ID   uint32
	DLC  string
}

func (c Component) isPatch() bool {
	return c.Kind == KindPatch || c.Kind == KindSubPatch
}

func (c Component) token() string {
	switch c.Kind {
	case KindBase:
		return fmt.Sprintf("%s%03d", prefixBase, c.ID)
	case KindDLC:
		return prefixDLC + c.DLC
	case KindSub:
		return fmt.Sprintf("%s%03d", prefixSub, c.ID)
	default:
		return fmt.Sprintf("%s%03d", prefixPatch, c.ID)
	}
}

func compareComponent(a, b Component) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if a.Kind == KindDLC {
		return strings.Compare(a.DLC, b.DLC)
	}
	return cmp.Compare(a.ID, b.ID)
}

// Name is a parsed container file name. The zero value has no components.
type Name struct {
	components []Component
}

// New returns the base chunk name re_chunk_<base>.pak.
func New(base uint32) Name {
	return Name{components: []Component{{Kind: KindBase, ID: base}}}
}

// NewSub returns re_chunk_<base>.pak.sub_<sub>.pak.
func NewSub(base, sub uint32) Name {
	return Name{components: []Component{
		{Kind: KindBase, ID: base},
		{Kind: KindSub, ID: sub},
	}}
}

// Parse parses a container file name. Errors are *ParseError values
// wrapping ErrInvalidFormat, ErrInvalidComponent or ErrInvalidNumericID.
func Parse(text string) (Name, error) {
	tokens := strings.Split(text, ".")
	if len(tokens)%2 != 0 {
		return Name{}, &ParseError{Text: text, Err: ErrInvalidFormat}
	}

	components := make([]Component, 0, len(tokens)/2)
	sawSub := false
	for i := 0; i < len(tokens); i += 2 {
		token, ext := tokens[i], tokens[i+1]
		if ext != Extension {
			return Name{}, &ParseError{Text: text, Token: ext, Err: ErrInvalidFormat}
		}
		c, err := parseComponent(token, sawSub)
		if err != nil {
			return Name{}, &ParseError{Text: text, Token: token, Err: err}
		}
		if c.Kind == KindSub {
			sawSub = true
		}
		components = append(components, c)
	}
	return Name{components: components}, nil
}

func parseComponent(token string, afterSub bool) (Component, error) {
	switch {
	case strings.HasPrefix(token, prefixBase):
		id, err := parseID(token[len(prefixBase):])
		return Component{Kind: KindBase, ID: id}, err
	case strings.HasPrefix(token, prefixDLC):
		dlc := token[len(prefixDLC):]
		if dlc == "" {
			return Component{}, ErrInvalidComponent
		}
		return Component{Kind: KindDLC, DLC: dlc}, nil
	case strings.HasPrefix(token, prefixSub):
		id, err := parseID(token[len(prefixSub):])
		return Component{Kind: KindSub, ID: id}, err
	case strings.HasPrefix(token, prefixPatch):
		id, err := parseID(token[len(prefixPatch):])
		kind := KindPatch
		if afterSub {
			kind = KindSubPatch
		}
		return Component{Kind: kind, ID: id}, err
	default:
		return Component{}, ErrInvalidComponent
	}
}

func parseID(s string) (uint32, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, ErrInvalidNumericID
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, ErrInvalidNumericID
	}
	return uint32(id), nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// fixed names.
func MustParse(text string) Name {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

// String formats the name. Numeric ids are zero-padded to three digits.
func (n Name) String() string {
	var sb strings.Builder
	for i, c := range n.components {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(c.token())
		sb.WriteByte('.')
		sb.WriteString(Extension)
	}
	return sb.String()
}

// Len returns the number of components.
func (n Name) Len() int {
	return len(n.components)
}

// Components returns a copy of the component sequence.
func (n Name) Components() []Component {
	return slices.Clone(n.components)
}

// IsZero reports whether n has no components.
func (n Name) IsZero() bool {
	return len(n.components) == 0
}

func (n Name) first(k Kind) (Component, bool) {
	for _, c := range n.components {
		if c.Kind == k {
			return c, true
		}
	}
	return Component{}, false
}

func (n Name) firstID(k Kind) (uint32, bool) {
	c, ok := n.first(k)
	return c.ID, ok
}

// BaseID returns the first base id.
func (n Name) BaseID() (uint32, bool) { return n.firstID(KindBase) }

// SubID returns the first sub id.
func (n Name) SubID() (uint32, bool) { return n.firstID(KindSub) }

// PatchID returns the first patch-of-base id.
func (n Name) PatchID() (uint32, bool) { return n.firstID(KindPatch) }

// SubPatchID returns the first patch-of-sub id.
func (n Name) SubPatchID() (uint32, bool) { return n.firstID(KindSubPatch) }

// DLC returns the first DLC id.
func (n Name) DLC() (string, bool) {
	c, ok := n.first(KindDLC)
	return c.DLC, ok
}

// IsSub reports whether n has a sub component.
func (n Name) IsSub() bool {
	_, ok := n.first(KindSub)
	return ok
}

// IsPatch reports whether n has a patch or sub-patch component.
func (n Name) IsPatch() bool {
	return slices.ContainsFunc(n.components, Component.isPatch)
}

// Ordinal returns the patch ordinal of n: the sub-patch id, else the patch
// id, else 0.
func (n Name) Ordinal() uint32 {
	if id, ok := n.SubPatchID(); ok {
		return id
	}
	id, _ := n.PatchID()
	return id
}

// Series returns n without its patch components. Names sharing a series are
// patches of the same chunk.
func (n Name) Series() Name {
	out := make([]Component, 0, len(n.components))
	for _, c := range n.components {
		if !c.isPatch() {
			out = append(out, c)
		}
	}
	return Name{components: out}
}

// SeriesKey returns the formatted series, usable as a map key.
func (n Name) SeriesKey() string {
	return n.Series().String()
}

// WithSubPatch returns a copy of n whose trailing patch ordinal is id. A
// trailing patch component is replaced; otherwise one is appended. The new
// component is a sub-patch when a sub precedes it and a base patch
// otherwise, matching what Parse produces for the formatted name.
func (n Name) WithSubPatch(id uint32) Name {
	out := slices.Clone(n.components)
	if len(out) > 0 && out[len(out)-1].isPatch() {
		out = out[:len(out)-1]
	}
	kind := KindPatch
	if slices.ContainsFunc(out, func(c Component) bool { return c.Kind == KindSub }) {
		kind = KindSubPatch
	}
	out = append(out, Component{Kind: kind, ID: id})
	return Name{components: out}
}

// Equal reports whether n and o have identical components.
func (n Name) Equal(o Name) bool {
	return Compare(n, o) == 0
}

// Less reports whether n sorts before o.
func (n Name) Less(o Name) bool {
	return Compare(n, o) < 0
}

// Compare orders names: shorter sequences first, then pairwise by kind
// priority and value.
func Compare(a, b Name) int {
	if c := cmp.Compare(len(a.components), len(b.components)); c != 0 {
		return c
	}
	for i := range a.components {
		if c := compareComponent(a.components[i], b.components[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Sort sorts names in ascending order.
func Sort(names []Name) {
	slices.SortFunc(names, Compare)
}

// LooksLikeChunk reports whether a file name is a candidate for Parse.
// It does not validate the components.
func LooksLikeChunk(file string) bool {
	return strings.HasPrefix(file, "re_") && strings.HasSuffix(file, "."+Extension)
}
