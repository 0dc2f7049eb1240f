package locsync

import (
	"net/url"
	"sync"
)

// Location is a shareable address with a query component that can be observed
// and navigated.
type Location interface {
	// Query returns a copy of the current query parameters.
	Query() url.Values
	// Push navigates to the current path with q as its query.
	Push(q url.Values)
	// Subscribe registers fn for every effective navigation.
	Subscribe(fn func(url.Values)) (unsubscribe func())
}

// History is an in-memory Location. Navigating to the address it already shows
// does nothing; any other navigation notifies subscribers synchronously.
type History struct {
	mu     sync.Mutex
	path   string
	query  url.Values
	subs   []subscriber[url.Values]
	nextID int
}

// NewHistory starts a History at rawURL.
func NewHistory(rawURL string) (*History, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &History{path: pathOf(u), query: u.Query()}, nil
}

func pathOf(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	return p
}

// Query implements Location.
func (h *History) Query() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneValues(h.query)
}

// Push implements Location.
func (h *History) Push(q url.Values) {
	h.mu.Lock()
	path := h.path
	h.mu.Unlock()
	h.navigate(path, q)
}

// Navigate replaces the whole address, the way a user edits a location bar.
func (h *History) Navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	h.navigate(pathOf(u), u.Query())
	return nil
}

func (h *History) navigate(path string, q url.Values) {
	h.mu.Lock()
	if path == h.path && q.Encode() == h.query.Encode() {
		h.mu.Unlock()
		return
	}
	h.path = path
	h.query = cloneValues(q)
	subs := append([]subscriber[url.Values](nil), h.subs...)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(cloneValues(q))
	}
}

// Subscribe implements Location.
func (h *History) Subscribe(fn func(url.Values)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs = append(h.subs, subscriber[url.Values]{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// String is the shareable address.
func (h *History) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	u := url.URL{Path: h.path, RawQuery: h.query.Encode()}
	return u.String()
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
