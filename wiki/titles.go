package wiki

import (
	"net/url"
	"sort"
	"strings"
)

// WikiToURI converts a page title to the form used in wiki URLs: spaces
// become underscores and each path segment is escaped.
func WikiToURI(title string) string {
	segments := strings.Split(title, "/")
	for i, s := range segments {
		segments[i] = url.QueryEscape(strings.ReplaceAll(s, " ", "_"))
	}
	return strings.Join(segments, "/")
}

// URIToWiki converts an URL path back to a page title.
func URIToWiki(uri string) string {
	unescaped, err := url.QueryUnescape(uri)
	if err != nil {
		unescaped = uri
	}
	return strings.ReplaceAll(unescaped, "_", " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
