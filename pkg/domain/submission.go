package domain

import "time"

// Submission describes an archived workbook.
type Submission struct {
	ID       string    `json:"idCarga"`
	FileName string    `json:"nombreArchivo"`
	Size     int64     `json:"tamano"`
	StoredAt time.Time `json:"fechaCarga"`
	URL      string    `json:"url,omitempty"`
}
