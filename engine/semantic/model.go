package semantic

// RetrievedChunk is a single similarity-search hit, ready for prompt
// assembly. Distance is cosine distance (0 is identical), so results
// sort ascending.
type RetrievedChunk struct {
	Text     string  `json:"text"`
	VideoID  string  `json:"video_id"`
	VideoURL string  `json:"video_url"`
	Title    string  `json:"video_title"`
	Ordinal  int     `json:"chunk_index"`
	Distance float32 `json:"distance"`
}

// Stats summarizes the collection contents.
type Stats struct {
	TotalChunks int      `json:"total_chunks"`
	TotalItems  int      `json:"total_videos"`
	ItemIDs     []string `json:"video_ids"`
}
