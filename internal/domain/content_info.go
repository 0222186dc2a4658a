package domain

// ContentInfo carries resource metadata reported by the download
// collaborator. The cache core persists it verbatim and never
// interprets it; the fields exist so the player can answer range
// requests and pick a decoder without touching the network.
type ContentInfo struct {
	Length        int64
	MIMEType      string
	AcceptsRanges bool
}
