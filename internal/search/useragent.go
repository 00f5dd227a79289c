package search

// DefaultUserAgents is the pool of desktop browser User-Agent strings the
// client rotates through when the API starts rate limiting.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// pickUserAgent returns a random entry of pool using r.
func pickUserAgent(pool []string, r randSource) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[r.IntN(len(pool))]
}
