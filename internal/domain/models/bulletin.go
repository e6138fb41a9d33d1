package models

import "time"

// BulletinLink is a discovered reference to one daily bulletin document.
// Produced by the listing discoverer, consumed once by the download orchestrator.
type BulletinLink struct {
	URL        string
	ReportDate time.Time
}
