package value

// Item is the Language's sole stream element: an ordered map from
// lower-cased field name to Primitive. A default-constructed Item is
// empty and carries no identity beyond its fields.
type Item struct {
	order  []string
	fields map[string]Primitive
}

// NewItem returns a default-constructed, empty Item.
func NewItem() *Item {
	return &Item{fields: make(map[string]Primitive)}
}

// Set stores name (case-folded) -> val, preserving first-insertion order
// for fields set for the first time; re-setting an existing field updates
// its value in place without moving it.
func (it *Item) Set(name string, val Primitive) {
	key := Lower(name)
	if _, exists := it.fields[key]; !exists {
		it.order = append(it.order, key)
	}
	it.fields[key] = val
}

// Get returns the field's value and whether it is present.
func (it *Item) Get(name string) (Primitive, bool) {
	v, ok := it.fields[Lower(name)]
	return v, ok
}

// Fields returns field names in insertion order.
func (it *Item) Fields() []string {
	out := make([]string, len(it.order))
	copy(out, it.order)
	return out
}

// Len returns the number of fields.
func (it *Item) Len() int { return len(it.order) }

// Clone returns an independent copy of it.
func (it *Item) Clone() *Item {
	cp := NewItem()
	for _, k := range it.order {
		cp.Set(k, it.fields[k])
	}
	return cp
}

// Equal reports whether two items have exactly the same fields and
// values, independent of insertion order.
func (it *Item) Equal(o *Item) bool {
	if it.Len() != o.Len() {
		return false
	}
	for k, v := range it.fields {
		ov, ok := o.fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
