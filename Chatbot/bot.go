package Chatbot

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"golang.org/x/exp/rand"
)

// Context is what the UI knows about the conversation.
type Context struct {
	TrialID  string `json:"trial_id"`
	SiteID   string `json:"site_id"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

type Responder interface {
	Name() string
	Respond(input string, ctx Context) string
}

// Rule fires when every All keyword and, if Any is set, at least one Any
// keyword occur in the lower-cased input.
type Rule struct {
	Name  string
	All   []string
	Any   []string
	Reply func(input string, ctx Context) string
}

func (r Rule) matches(text string) bool {
	for _, kw := range r.All {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return len(r.All) > 0
	}
	for _, kw := range r.Any {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Bot is an ordered keyword dispatcher: the first matching rule answers.
type Bot struct {
	name     string
	rules    []Rule
	fallback func(ctx Context) string

	mu    sync.Mutex
	extra []Rule
	rng   *rand.Rand
}

func newBot(name string, fallback func(Context) string) *Bot {
	return &Bot{
		name:     name,
		fallback: fallback,
		rng:      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (b *Bot) Name() string { return b.name }

func (b *Bot) Respond(input string, ctx Context) string {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return b.fallback(ctx)
	}
	for _, r := range b.rules {
		if r.matches(text) {
			return r.Reply(text, ctx)
		}
	}

	b.mu.Lock()
	extra := b.extra
	b.mu.Unlock()
	for _, r := range extra {
		if r.matches(text) {
			return r.Reply(text, ctx)
		}
	}
	return b.fallback(ctx)
}

// AddRules appends rules evaluated after the built-in ones.
func (b *Bot) AddRules(rules ...Rule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extra = append(b.extra, rules...)
}

// syntheticID makes an id like Q-4821 for canned "created" replies. Nothing
// is stored.
func (b *Bot) syntheticID(prefix string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("%s-%04d", prefix, 1000+b.rng.Intn(9000))
}

// StaticRule is the on-disk form of a canned answer.
type StaticRule struct {
	Name     string   `json:"name"`
	Bot      string   `json:"bot"`
	Keywords []string `json:"keywords"`
	Any      []string `json:"any"`
	Response string   `json:"response"`
}

// LoadRules reads a JSON5 list of static rules.
func LoadRules(path string) ([]StaticRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chatbot rules: %w", err)
	}
	var rules []StaticRule
	if err := json5.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse chatbot rules %s: %w", path, err)
	}
	return rules, nil
}

// Rule turns a static rule into a dispatcher rule. {trial_id}, {site_id}
// and {user} in the response are filled from the context.
func (s StaticRule) Rule() Rule {
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, v := range in {
			out[i] = strings.ToLower(v)
		}
		return out
	}
	response := s.Response
	return Rule{
		Name: s.Name,
		All:  lower(s.Keywords),
		Any:  lower(s.Any),
		Reply: func(_ string, ctx Context) string {
			return strings.NewReplacer(
				"{trial_id}", ctx.TrialID,
				"{site_id}", ctx.SiteID,
				"{user}", ctx.UserName,
			).Replace(response)
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
