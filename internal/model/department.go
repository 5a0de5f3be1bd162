package model

// Department is a node in the organization forest
type Department struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// IsRoot returns true if the department has no parent
func (d *Department) IsRoot() bool {
	return d.ParentID == nil
}
