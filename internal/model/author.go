package model

// Author data model. Authors are immutable after load.
type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Key returns the store key of the author.
func (a Author) Key() int {
	return a.ID
}
