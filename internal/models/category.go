package models

// Category groups channels inside a server for display ordering. Categories
// carry no permission state of their own.
type Category struct {
	ID       int64  `json:"id,string"`
	ServerID int64  `json:"server_id,string"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}
