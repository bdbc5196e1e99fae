package classify

import (
	"regexp"
	"strings"
)

const (
	maxTitleKeywords       = 5
	maxDescriptionKeywords = 5
	maxKeywords            = 8
)

var stopWords = map[string]struct{}{
	"meeting": {}, "call": {}, "sync": {}, "standup": {}, "review": {},
	"discussion": {}, "update": {}, "the": {}, "and": {}, "for": {}, "with": {},
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
)

// Keywords extracts search terms from an event title and description,
// joined by single spaces. At most 8 tokens are returned.
func Keywords(title, description string) string {
	var keywords []string
	for _, w := range strings.Fields(nonAlnumRe.ReplaceAllString(title, " ")) {
		if len(keywords) == maxTitleKeywords {
			break
		}
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		keywords = append(keywords, w)
	}

	if description != "" {
		clean := nonAlnumRe.ReplaceAllString(tagRe.ReplaceAllString(description, " "), " ")
		added := 0
		for _, w := range strings.Fields(clean) {
			if added == maxDescriptionKeywords {
				break
			}
			if len(w) > 4 {
				keywords = append(keywords, w)
				added++
			}
		}
	}

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return strings.Join(keywords, " ")
}
