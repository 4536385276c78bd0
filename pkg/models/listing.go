package models

// Breadcrumb is one navigation step from the bucket root to a path.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the direct content of one folder.
type Listing struct {
	Bucket      string       `json:"bucket"`
	Path        string       `json:"path"`
	Folders     []Folder     `json:"folders"`
	Files       []File       `json:"files"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
}
