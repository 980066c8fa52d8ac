package graph

// Row is one result row keyed by the query's RETURN aliases.
type Row map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the field as a bool. Absent or null properties read as
// false, which keeps owned/highvalue well-defined for every node.
func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Int returns the field as an int64, or 0 when absent.
func (r Row) Int(key string) int64 {
	n, _ := r[key].(int64)
	return n
}
