package catalog

// SeasonSummary is a season entry inside TV details.
type SeasonSummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// Details is the typed view of a details response.
type Details struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Name         string          `json:"name"`
	Overview     string          `json:"overview"`
	ReleaseDate  string          `json:"release_date"`
	FirstAirDate string          `json:"first_air_date"`
	PosterPath   string          `json:"poster_path"`
	BackdropPath string          `json:"backdrop_path"`
	VoteAverage  float64         `json:"vote_average"`
	Seasons      []SeasonSummary `json:"seasons"`
}

// DisplayTitle returns the movie title or the show name.
func (d Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Date returns the release or first air date.
func (d Details) Date() string {
	if d.ReleaseDate != "" {
		return d.ReleaseDate
	}
	return d.FirstAirDate
}

// Episode is one episode of a season.
type Episode struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	EpisodeNumber int    `json:"episode_number"`
	AirDate       string `json:"air_date"`
	Overview      string `json:"overview"`
}

// Season is the typed view of a season details response.
type Season struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	Overview     string    `json:"overview"`
	Episodes     []Episode `json:"episodes"`
}

// Video is a video attached to a media item.
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// VideoList is the typed view of a videos response.
type VideoList struct {
	Results []Video `json:"results"`
}

// Trailer returns the first YouTube trailer.
func (l VideoList) Trailer() (Video, bool) {
	for _, v := range l.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" && v.Key != "" {
			return v, true
		}
	}
	return Video{}, false
}

// EmbedURL returns the YouTube embed URL of v.
func (v Video) EmbedURL() string {
	return YouTubeEmbedBase + v.Key
}
