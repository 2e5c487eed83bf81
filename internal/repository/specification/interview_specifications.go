package specification

// NewestFirst orders interviews for the dashboard list.
func NewestFirst() Specification {
	return OrderBy{Field: "created_at", Desc: true}
}
