package models

// Role is a named permission bundle within a server. Position totally orders
// roles; higher position means more senior. Exactly one role per server has
// IsBase set — every member holds it implicitly.
type Role struct {
	ID          int64    `json:"id,string"`
	ServerID    int64    `json:"server_id,string"`
	Name        string   `json:"name"`
	Color       int      `json:"color"`
	Permissions []string `json:"permissions"`
	Position    int      `json:"position"`
	IsBase      bool     `json:"is_base"`
}
