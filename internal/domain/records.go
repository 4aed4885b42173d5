package domain

// completionThreshold is the watched fraction at which an item counts as finished.
const completionThreshold = 0.95

// WatchProgress is the last known playback position of one item for one user.
// Identity lives in the composite key the record is stored under, not in the record.
type WatchProgress struct {
	Title         string `json:"title"`
	SourceName    string `json:"source_name"`
	Year          string `json:"year"`
	Cover         string `json:"cover"`
	Index         int    `json:"index"`          // Episode index, 1-based
	TotalEpisodes int    `json:"total_episodes"` // Episode count of the item
	PlayTime      int    `json:"play_time"`      // Position in seconds
	TotalTime     int    `json:"total_time"`     // Duration in seconds
	SaveTime      int64  `json:"save_time"`      // Unix ms when saved
	SearchTitle   string `json:"search_title,omitempty"`
}

// Progress returns the watched fraction of the current episode in [0, 1].
func (w WatchProgress) Progress() float64 {
	if w.TotalTime <= 0 || w.PlayTime <= 0 {
		return 0
	}
	p := float64(w.PlayTime) / float64(w.TotalTime)
	if p > 1 {
		return 1
	}
	return p
}

// Completed reports whether the current episode has been (nearly) watched to the end.
func (w WatchProgress) Completed() bool {
	return w.Progress() >= completionThreshold
}

// GetTitle returns the display title.
func (w WatchProgress) GetTitle() string { return w.Title }

// GetSaveTime returns when the record was saved (Unix ms).
func (w WatchProgress) GetSaveTime() int64 { return w.SaveTime }

// Favorite is a bookmarked item.
type Favorite struct {
	Title         string `json:"title"`
	SourceName    string `json:"source_name"`
	Year          string `json:"year"`
	Cover         string `json:"cover"`
	TotalEpisodes int    `json:"total_episodes"`
	SaveTime      int64  `json:"save_time"` // Unix ms when saved
	SearchTitle   string `json:"search_title,omitempty"`
}

// GetTitle returns the display title.
func (f Favorite) GetTitle() string { return f.Title }

// GetSaveTime returns when the record was saved (Unix ms).
func (f Favorite) GetSaveTime() int64 { return f.SaveTime }

// Record is implemented by the values of keyed collections.
type Record interface {
	GetTitle() string
	GetSaveTime() int64
}
