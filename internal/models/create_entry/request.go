package models

// CreateEntryForm is the multipart body of POST /entries. Entry holds the JSON
// fields of the entry, Media the picked files, and Preview the index of the file
// that becomes the preview.
type CreateEntryForm struct {
	Entry   string `form:"entry" binding:"required"`
	Preview *int   `form:"preview"`
}
