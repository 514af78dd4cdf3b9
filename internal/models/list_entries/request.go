package models

// ListEntriesQuery is bound from the query string of GET /entries.
type ListEntriesQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=draft published archived"`
	Location string `form:"location"`
	Tag      string `form:"tag"`
	Q        string `form:"q"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
}
