package core

// Podping is a single feed update notification carried by the podping
// stream.
type Podping struct {
	Version string   `json:"version"`
	Medium  string   `json:"medium"`
	Reason  string   `json:"reason"`
	IRIs    []string `json:"iris"`

	// URL and URLs are used by pre-1.0 podpings.
	URL  string   `json:"url,omitempty"`
	URLs []string `json:"urls,omitempty"`
}

const PodpingReasonLive = "live"

// Feeds returns every feed IRI named by the podping.
func (p Podping) Feeds() []string {
	feeds := make([]string, 0, len(p.IRIs)+len(p.URLs)+1)
	feeds = append(feeds, p.IRIs...)
	feeds = append(feeds, p.URLs...)
	if p.URL != "" {
		feeds = append(feeds, p.URL)
	}
	return feeds
}
