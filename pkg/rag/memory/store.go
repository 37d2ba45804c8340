package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Turn is one completed question/answer exchange.
type Turn struct {
	Question   string
	Answer     string
	Incomplete bool
	At         time.Time
}

// Conversation is the rolling in-process memory for one chat session.
// It backs the classifier's history signals and the contextual rewrite.
type Conversation struct {
	SessionID string
	UserID    string
	Turns     []Turn
	Topics    []string

	mu sync.Mutex
}

const maxTurns = 20

// Store keeps conversations in a TTL cache keyed by session id.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a conversation store whose entries expire after an hour
// of inactivity and are purged every 10 minutes.
func NewStore() *Store {
	return &Store{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// LoadOrCreate retrieves the conversation for a session, creating an empty
// one on first use.
func (s *Store) LoadOrCreate(userID, sessionID string) *Conversation {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*Conversation)
	}
	conv := &Conversation{
		SessionID: sessionID,
		UserID:    userID,
	}
	s.cache.Set(sessionID, conv, cache.DefaultExpiration)
	return conv
}

// Save refreshes the conversation's TTL.
func (s *Store) Save(conv *Conversation) {
	s.cache.Set(conv.SessionID, conv, cache.DefaultExpiration)
}

// Delete drops a conversation, used when the session cache is invalidated.
func (s *Store) Delete(sessionID string) {
	s.cache.Delete(sessionID)
}

// Record appends a completed turn and folds the question into the rolling
// topic list. Older turns beyond the window are dropped.
func (c *Conversation) Record(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Turns = append(c.Turns, t)
	if len(c.Turns) > maxTurns {
		c.Turns = c.Turns[len(c.Turns)-maxTurns:]
	}
	c.foldTopics(t.Question)
}

// HasHistory reports whether at least one turn has been recorded.
func (c *Conversation) HasHistory() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Turns) > 0
}

// LastAnswer returns the most recent complete answer, or "" if the last
// turn was cut short or no turn exists.
func (c *Conversation) LastAnswer() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.Turns) - 1; i >= 0; i-- {
		if !c.Turns[i].Incomplete {
			return c.Turns[i].Answer
		}
	}
	return ""
}

// LastQuestion returns the most recent question, or "".
func (c *Conversation) LastQuestion() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Turns) == 0 {
		return ""
	}
	return c.Turns[len(c.Turns)-1].Question
}

// History returns copies of the most recent n turns in chronological order.
func (c *Conversation) History(n int) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || n > len(c.Turns) {
		n = len(c.Turns)
	}
	out := make([]Turn, n)
	copy(out, c.Turns[len(c.Turns)-n:])
	return out
}

// TurnCount returns how many turns are retained.
func (c *Conversation) TurnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Turns)
}

// RecentTopics returns up to n of the most recently seen topic words.
func (c *Conversation) RecentTopics(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n > len(c.Topics) {
		n = len(c.Topics)
	}
	out := make([]string, n)
	copy(out, c.Topics[len(c.Topics)-n:])
	return out
}

const maxTopics = 30

// foldTopics keeps a deduplicated rolling list of content words from
// questions. Caller holds c.mu.
func (c *Conversation) foldTopics(question string) {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,?!\"'()")
		if len(word) < 4 || stopwords[word] {
			continue
		}
		if c.hasTopic(word) {
			continue
		}
		c.Topics = append(c.Topics, word)
	}
	if len(c.Topics) > maxTopics {
		c.Topics = c.Topics[len(c.Topics)-maxTopics:]
	}
}

func (c *Conversation) hasTopic(word string) bool {
	for _, t := range c.Topics {
		if t == word {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "about": true,
	"this": true, "that": true, "these": true, "those": true, "from": true,
	"with": true, "does": true, "have": true, "there": true, "their": true,
	"please": true, "could": true, "would": true, "should": true,
}
