package models

// UpdateEntryForm is the multipart body of PATCH /entries/:id. Entry is an optional
// JSON patch; absent fields are left as they are.
type UpdateEntryForm struct {
	Entry   string `form:"entry"`
	Preview *int   `form:"preview"`
}
