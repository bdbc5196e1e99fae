package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"meetprep/internal/models"
)

// MaxInboxBatch is the largest number of emails classified in one model call.
const MaxInboxBatch = 30

var ErrMalformedModelOutput = errors.New("malformed model output")

// InboxAssignment holds one category per email, index-aligned with the batch.
type InboxAssignment []models.InboxCategory

// FallbackInboxAssignment puts every email into highPriority so nothing is dropped.
func FallbackInboxAssignment(n int) InboxAssignment {
	a := make(InboxAssignment, n)
	for i := range a {
		a[i] = models.InboxHighPriority
	}
	return a
}

// Counts tallies the assignment per category. Every category is present.
func (a InboxAssignment) Counts() map[models.InboxCategory]int {
	counts := make(map[models.InboxCategory]int, len(models.InboxCategories))
	for _, c := range models.InboxCategories {
		counts[c] = 0
	}
	for _, c := range a {
		counts[c]++
	}
	return counts
}

type inboxEntry struct {
	Index    flexInt `json:"index"`
	Category string  `json:"category"`
}

// flexInt accepts 3, 3.0 and "3".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// ParseInboxCategories decodes the model's JSON array of {index, category}
// pairs for a batch of n emails. Entries with an unknown category, and emails
// the model did not mention, are assigned highPriority; out-of-range indexes
// are ignored. A non-JSON answer returns ErrMalformedModelOutput and the
// caller is expected to use FallbackInboxAssignment.
func ParseInboxCategories(raw string, n int) (InboxAssignment, error) {
	body := stripCodeFence(raw)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedModelOutput)
	}

	var entries []inboxEntry
	if err := json.Unmarshal([]byte(body[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	out := FallbackInboxAssignment(n)
	seen := make([]bool, n)
	for _, e := range entries {
		i := int(e.Index)
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		if c := models.InboxCategory(strings.TrimSpace(e.Category)); c.Valid() {
			out[i] = c
		}
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
