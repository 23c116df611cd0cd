// Package classifier screens inbound messages for scam and phishing content.
//
// Classification is a pure function over the message value: an ordered
// keyword pass over body and caption, then a link-domain pass over every
// hostname the message carries. It performs no I/O and always returns a
// verdict; malformed input degrades to Safe rather than failing the pipeline.
package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"relayguard/pkg/bus"
	"relayguard/pkg/config"
)

// Reason identifies which rule family flagged a message.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonKeyword       Reason = "keyword"
	ReasonBlockedDomain Reason = "blocklisted-domain"
	ReasonSuspiciousTLD Reason = "suspicious-tld"
	ReasonAllowlist     Reason = "allowlist-violation"
)

// Verdict is the classification result for one message.
type Verdict struct {
	Suspicious bool
	Reason     Reason
	// Detail names the matched pattern or domain for logging.
	Detail string
}

// Safe reports whether the message may be forwarded.
func (v Verdict) Safe() bool {
	return !v.Suspicious
}

func (v Verdict) String() string {
	if v.Safe() {
		return "safe"
	}
	return fmt.Sprintf("suspicious (%s: %s)", v.Reason, v.Detail)
}

var defaultKeywords = map[string]string{
	`claim (your|ur)?\s*(free|reward)`: "solicitation",
	`claim now`:                        "solicitation",
	`connect (your )?wallet`:           "wallet-phishing",
	`airdrop`:                          "crypto-giveaway",
	`instant reward`:                   "solicitation",
	`verify to receive`:                "solicitation",
	`free (eth|btc|crypto|tokens?)`:    "crypto-giveaway",
	`seed phrase`:                      "wallet-phishing",
	`double your`:                      "crypto-giveaway",
	`limited time offer`:               "solicitation",
}

var defaultBlockedDomains = []string{
	"freeether.net",
	"claimdrop.io",
	"wallet-verify.com",
	"eth-giveaway.org",
}

var defaultSuspiciousTLDs = []string{
	"xyz", "top", "icu", "buzz", "click", "rest", "cfd", "gq", "tk", "ml",
}

type keywordRule struct {
	pattern  *regexp.Regexp
	raw      string
	category string
}

// Classifier evaluates messages against configured rule sets.
type Classifier struct {
	rules   []keywordRule
	blocked map[string]struct{}
	tlds    map[string]struct{}
	allowed map[string]struct{}
}

// New compiles the rule sets from config, falling back to built-in defaults
// for empty keyword, blocklist, and TLD sets. An empty allowlist disables
// allowlist checking.
func New(cfg config.ClassifierConfig) (*Classifier, error) {
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}

	// Deterministic rule order regardless of map iteration.
	patterns := make([]string, 0, len(keywords))
	for pattern := range keywords {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	rules := make([]keywordRule, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile keyword pattern %q: %w", pattern, err)
		}
		rules = append(rules, keywordRule{pattern: compiled, raw: pattern, category: keywords[pattern]})
	}

	blockedDomains := cfg.BlockedDomains
	if len(blockedDomains) == 0 {
		blockedDomains = defaultBlockedDomains
	}

	suspiciousTLDs := cfg.SuspiciousTLDs
	if len(suspiciousTLDs) == 0 {
		suspiciousTLDs = defaultSuspiciousTLDs
	}

	return &Classifier{
		rules:   rules,
		blocked: lowerSet(blockedDomains),
		tlds:    lowerSet(suspiciousTLDs),
		allowed: lowerSet(cfg.AllowedDomains),
	}, nil
}

// Classify evaluates one message and always returns a verdict.
func (c *Classifier) Classify(msg bus.InboundMessage) Verdict {
	body := msg.Body()

	if rule, ok := c.matchKeyword(body); ok {
		return Verdict{Suspicious: true, Reason: ReasonKeyword, Detail: rule.raw}
	}

	domains := ExtractDomains(msg)
	if len(domains) == 0 {
		// No link is never itself suspicious.
		return Verdict{}
	}

	if len(c.allowed) > 0 {
		for _, domain := range domains {
			if _, ok := c.allowed[domain]; !ok {
				return Verdict{Suspicious: true, Reason: ReasonAllowlist, Detail: domain}
			}
		}
	}

	for _, domain := range domains {
		if _, ok := c.blocked[domain]; ok {
			return Verdict{Suspicious: true, Reason: ReasonBlockedDomain, Detail: domain}
		}
	}

	for _, domain := range domains {
		if _, ok := c.tlds[topLevelLabel(domain)]; ok {
			return Verdict{Suspicious: true, Reason: ReasonSuspiciousTLD, Detail: domain}
		}
	}

	return Verdict{}
}

func (c *Classifier) matchKeyword(body string) (keywordRule, bool) {
	if strings.TrimSpace(body) == "" {
		return keywordRule{}, false
	}

	for _, rule := range c.rules {
		if rule.pattern.MatchString(body) {
			return rule, true
		}
	}

	return keywordRule{}, false
}

func lowerSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}

	if len(set) == 0 {
		return nil
	}

	return set
}
