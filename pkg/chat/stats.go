package chat

import (
	"regexp"
	"sort"
	"strings"

	"nodechat/pkg/models"
)

var hashtagRe = regexp.MustCompile(`#\w+`)

// activeWindow is the rolling window used for the activeParticipants count.
const activeWindow = int64(24 * 60 * 60 * 1e9) // 24h in ns

// statsAggregator maintains one node's derived counters incrementally;
// nothing here ever rescans prior messages. Not internally synchronized;
// the owning node serializes access.
type statsAggregator struct {
	totalMessages int64
	lastActivity  int64
	hashtags      map[string]int64
	// firstSeen ranks each tag by first appearance for stable tie breaks.
	firstSeen map[string]int64
	seenSeq   int64
}

func newStatsAggregator() *statsAggregator {
	return &statsAggregator{
		hashtags:  make(map[string]int64),
		firstSeen: make(map[string]int64),
	}
}

// recordMessage tallies one appended message: total count, activity time
// and every hashtag occurrence in the content (case-normalized, repeated
// tags in one message each count).
func (s *statsAggregator) recordMessage(content string, now int64) {
	s.totalMessages++
	s.recordActivity(now)
	for _, tag := range hashtagRe.FindAllString(content, -1) {
		tok := strings.ToLower(strings.TrimPrefix(tag, "#"))
		if _, ok := s.firstSeen[tok]; !ok {
			s.seenSeq++
			s.firstSeen[tok] = s.seenSeq
		}
		s.hashtags[tok]++
	}
}

// recordActivity advances the last-activity mark (joins, typing, messages).
func (s *statsAggregator) recordActivity(now int64) {
	if now > s.lastActivity {
		s.lastActivity = now
	}
}

// HashtagCount is one entry of a topHashtags listing.
type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// topHashtags returns the n most frequent tags, count descending, ties
// broken by first-seen order.
func (s *statsAggregator) topHashtags(n int) []HashtagCount {
	out := make([]HashtagCount, 0, len(s.hashtags))
	for tag, c := range s.hashtags {
		out = append(out, HashtagCount{Tag: tag, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return s.firstSeen[out[i].Tag] < s.firstSeen[out[j].Tag]
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// snapshot renders the observable statistics surface; the active count is
// delegated to the directory by the caller.
func (s *statsAggregator) snapshot(active int) models.Statistics {
	tags := make(map[string]int64, len(s.hashtags))
	for k, v := range s.hashtags {
		tags[k] = v
	}
	return models.Statistics{
		TotalMessages:         s.totalMessages,
		ActiveParticipants:    active,
		LastActivityTimestamp: s.lastActivity,
		PopularHashtags:       tags,
	}
}

func (s *statsAggregator) firstSeenSnapshot() map[string]int64 {
	out := make(map[string]int64, len(s.firstSeen))
	for k, v := range s.firstSeen {
		out[k] = v
	}
	return out
}

func restoreStats(st models.Statistics, firstSeen map[string]int64) *statsAggregator {
	s := newStatsAggregator()
	s.totalMessages = st.TotalMessages
	s.lastActivity = st.LastActivityTimestamp
	for k, v := range st.PopularHashtags {
		s.hashtags[k] = v
	}
	for k, v := range firstSeen {
		s.firstSeen[k] = v
		if v > s.seenSeq {
			s.seenSeq = v
		}
	}
	// tags persisted without a rank (older snapshots) get appended in
	// lexical order so topHashtags stays deterministic
	var missing []string
	for k := range s.hashtags {
		if _, ok := s.firstSeen[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	for _, k := range missing {
		s.seenSeq++
		s.firstSeen[k] = s.seenSeq
	}
	return s
}
