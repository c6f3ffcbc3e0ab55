// SnapshotsData is a paginated response payload for the snapshot gallery.
package dto

type SnapshotsData struct {
	Snapshots   []SnapshotInfo `json:"snapshots"`
	ImagesDir   string         `json:"imagesDir"`
	Size        int64          `json:"size"`
	MaxSize     int64          `json:"maxSize"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}

// FilterOptions lists the values the gallery filters can take.
// Emotions are those present in the database; Categories are all of them.
type FilterOptions struct {
	Cameras    []string `json:"cameras"`
	Emotions   []string `json:"emotions"`
	Categories []string `json:"categories"`
}
