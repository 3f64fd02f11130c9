package model

// ContentManifest is the live course catalog served from the origin as
// videos.json. The cache controller must never serve it stale; the rendering
// layer consumes it as-is.
type ContentManifest struct {
	Cycles map[string]Cycle `json:"cycles"`
}

// Cycle is one exam cycle (top-level grouping of chapters).
type Cycle struct {
	Title        string    `json:"title"`
	Icon         string    `json:"icon,omitempty"`
	Status       string    `json:"status"`
	ChaptersList []Chapter `json:"chaptersList"`
}

// Chapter groups the lectures of one syllabus chapter.
type Chapter struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Icon     string    `json:"icon,omitempty"`
	Status   string    `json:"status,omitempty"`
	Lectures []Lecture `json:"lectures"`
}

// Lecture is a single playable video entry.
type Lecture struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	VideoURL string `json:"videoUrl"`
}
