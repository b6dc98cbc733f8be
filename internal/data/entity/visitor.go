package entity

// Visitor is an external identity. Only its existence is checked.
type Visitor struct {
	BaseSimple
}
