package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"relayguard/pkg/bus"
)

// Textual URL scan for links the origin client did not mark as entities.
var reTextURL = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)

// ExtractDomains collects every registrable domain a message links to.
//
// Sources are the structured link entities (explicit targets and displayed
// URL spans) and a best-effort scan of the raw body text. Malformed URLs are
// skipped. The result is deduplicated; order follows first occurrence.
func ExtractDomains(msg bus.InboundMessage) []string {
	var domains []string
	seen := make(map[string]struct{})

	add := func(raw string) {
		domain, ok := RegistrableDomain(raw)
		if !ok {
			return
		}
		if _, dup := seen[domain]; dup {
			return
		}
		seen[domain] = struct{}{}
		domains = append(domains, domain)
	}

	for _, link := range msg.Links {
		if link.URL != "" {
			add(link.URL)
			continue
		}
		if span := bus.UTF16Span(msg.Text, link.Offset, link.Length); span != "" {
			add(span)
		}
	}

	for _, match := range reTextURL.FindAllString(msg.Body(), -1) {
		add(match)
	}

	return domains
}

// RegistrableDomain reduces a raw URL or hostname to its last two labels.
//
// Multi-part public suffixes (for example .co.uk) reduce to the suffix
// itself; that imprecision is an accepted limitation of the heuristic.
func RegistrableDomain(raw string) (string, bool) {
	host, ok := hostname(raw)
	if !ok {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", false
	}

	return strings.Join(labels[len(labels)-2:], "."), true
}

// hostname parses a URL-ish string down to a lowercase hostname.
func hostname(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimRight(trimmed, ".,;:!?)")
	if trimmed == "" {
		return "", false
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(strings.TrimSuffix(parsed.Hostname(), "."))
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}

	return host, true
}

func topLevelLabel(domain string) string {
	idx := strings.LastIndexByte(domain, '.')
	if idx < 0 {
		return domain
	}

	return domain[idx+1:]
}
