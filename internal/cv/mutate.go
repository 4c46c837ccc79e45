package cv

// Item is implemented by every list-section entry.
type Item interface {
	Experience | Education | Skill | Language | Certification | Project
	ItemID() string
}

// Index returns the position of the item with the given id, or -1.
func Index[T Item](items []T, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}

// Append returns a new slice with item added at the end. The input slice
// is never written to.
func Append[T Item](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// Replace returns a new slice where the item matching id is passed through
// fn. When nothing matches the input is returned as is with false.
func Replace[T Item](items []T, id string, fn func(T) T) ([]T, bool) {
	idx := Index(items, id)
	if idx < 0 {
		return items, false
	}
	out := make([]T, len(items))
	copy(out, items)
	out[idx] = fn(out[idx])
	return out, true
}

// Remove returns a new slice without the items matching id. When nothing
// matches the input is returned as is with false.
func Remove[T Item](items []T, id string) ([]T, bool) {
	if Index(items, id) < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	for _, item := range items {
		if item.ItemID() != id {
			out = append(out, item)
		}
	}
	return out, true
}

// IDs lists item identifiers in order.
func IDs[T Item](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID())
	}
	return ids
}
