// Package urlfilter implements the deterministic URL-validity predicate
// that gates search hits before classification. It is pure string
// processing: no network access, no parsing beyond what the rules need.
package urlfilter

import (
	"regexp"
	"strings"
)

// SeenSet tracks URLs already accepted within one dedup unit (one topic
// of one bank). Each dedup unit must own its own SeenSet; sharing one
// across topics would wrongly suppress a URL that legitimately appears
// under two topics.
type SeenSet map[string]struct{}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() SeenSet {
	return make(SeenSet)
}

// blockedExtensions matches binary/document file extensions at the end of
// the URL path. Anchored so the extension is followed only by end-of-string;
// the caller strips query string and fragment first. A segment like
// /reports-2020 must not match merely for containing a keyword.
var blockedExtensions = regexp.MustCompile(`(?i)\.(pdf|pptx?|docx?|xlsx?|zip|rar|csv|json|xml|jpg|jpeg|png|gif|mp4|mp3|avi|mov|wmv|txt|rtf|epub|mobi|xlsm|xlsb|tar|gz|7z|exe|bin|iso)$`)

// authFragments are rejected as plain substrings anywhere in the URL.
// Intentionally coarse: "authority" contains "auth" and is rejected.
var authFragments = []string{
	"wp-login.php",
	"logout",
	"login",
	"session",
	"auth",
	"signin",
	"signup",
}

// blockedParams are query parameters that indicate single-item or
// paginated detail pages rather than stable listing roots.
var blockedParams = []string{"id", "sid", "prid", "page", "pageno", "doc", "item", "ref", "no", "num"}

var blockedParamPatterns = compileParamPatterns(blockedParams)

func compileParamPatterns(names []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(names))
	for i, name := range names {
		patterns[i] = regexp.MustCompile(`(^|[&?])` + name + `=[^&]+`)
	}
	return patterns
}

// blockWords are administrative/navigational words rejected when they
// appear as a delimited path segment (bounded by '/', '_', '-', or
// end-of-string) or as a query key. "report" inside /reports-archive does
// not match; /about-us does.
var blockWords = []string{
	"about", "contact", "home", "sitemap", "disclaimer", "privacy", "terms",
	"help", "faq", "feedback", "careers", "jobs", "login", "register",
	"signup", "signin", "support", "unsubscribe", "accessibility",
	"copyright", "cookies", "legal", "security", "admin", "dashboard",
	"profile", "settings", "preferences", "account", "user", "mypage",
	"myaccount", "myprofile",
}

var blockWordPatterns = compileBlockWordPatterns(blockWords)

func compileBlockWordPatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, word := range words {
		patterns[i] = regexp.MustCompile(`[/_-]` + word + `[/_-]|[/_-]` + word + `$|[?&]` + word + `=`)
	}
	return patterns
}

// IsValid decides whether url is a plausible listing-page candidate.
// Acceptance inserts url into seen as a side effect: a later call with
// the same URL and the same set returns false. Rejection never mutates
// seen. The rules, in order:
//
//  1. already seen
//  2. path ends in a blocked file extension (query/fragment stripped)
//  3. URL contains an auth-related substring
//  4. query string binds a blocked parameter to a non-empty value
//  5. URL contains a blocklisted word as a delimited segment or query key
func IsValid(url string, seen SeenSet) bool {
	if _, dup := seen[url]; dup {
		return false
	}

	base := url
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	if blockedExtensions.MatchString(base) {
		return false
	}

	lower := strings.ToLower(url)
	for _, frag := range authFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}

	var query string
	if i := strings.IndexByte(url, '?'); i >= 0 {
		query = strings.ToLower(url[i+1:])
	}
	if query != "" {
		for _, pat := range blockedParamPatterns {
			if pat.MatchString(query) {
				return false
			}
		}
	}

	for _, pat := range blockWordPatterns {
		if pat.MatchString(lower) {
			return false
		}
	}

	seen[url] = struct{}{}
	return true
}
