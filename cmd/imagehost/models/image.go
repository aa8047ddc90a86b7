package models

import (
	"strings"
	"time"
)

// UploadDateLayout is the format of upload_date in listing responses
const UploadDateLayout = "2006-01-02 15:04:05"

// ImageRecord is the metadata of one stored image.
// Maps to: images table
type ImageRecord struct {
	// Unique key shared with the blob store
	Identity string `db:"identity" json:"identity"`

	// Client-supplied file name without its suffix; informational only
	OriginalName string `db:"original_name" json:"original_name"`

	// Rounded size of the stored payload in kilobytes
	SizeKB int64 `db:"size_kb" json:"size_kb"`

	// Normalized suffix including the dot, e.g. ".jpg"
	FileType string `db:"file_type" json:"file_type"`

	// Commit time; sole ordering key of the listing
	UploadTime time.Time `db:"upload_time" json:"upload_time"`
}

// Ext returns the file type without its leading dot
func (r *ImageRecord) Ext() string {
	return strings.TrimPrefix(r.FileType, ".")
}

// Filename returns the stored blob name, e.g. "abc.jpg"
func (r *ImageRecord) Filename() string {
	return r.Identity + "." + r.Ext()
}

// Location returns the public retrieval path
func (r *ImageRecord) Location() string {
	return "/images/" + r.Filename()
}

// ImageListItem is the listing projection of an ImageRecord
type ImageListItem struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	Size             int64  `json:"size"`
	UploadDate       string `json:"upload_date"`
	FileType         string `json:"file_type"`
}

// ToListItem projects the record for GET /images
func (r *ImageRecord) ToListItem() ImageListItem {
	return ImageListItem{
		Filename:         r.Filename(),
		OriginalFilename: r.OriginalName,
		Size:             r.SizeKB,
		UploadDate:       r.UploadTime.UTC().Format(UploadDateLayout),
		FileType:         r.FileType,
	}
}

// ImageList is the GET /images response body
type ImageList struct {
	Images []ImageListItem `json:"images"`
}

// UploadResult is the POST /upload response body
type UploadResult struct {
	Filename  string `json:"filename"`
	Location  string `json:"location"`
	Duplicate bool   `json:"duplicate"`
}
