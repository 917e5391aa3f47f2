package rule

import "github.com/gobwas/glob"

// accountMatches reports whether name matches any of patterns (§4.3
// step 1). An empty pattern list matches every account.
func accountMatches(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}
