package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var channelRefRegex = regexp.MustCompile(`<#(\d+)>`)

// NormalizeBaseURL cleans a configured public URL: scheme defaults to
// https, the host is lowercased and punycoded, the port is kept, and query,
// fragment, credentials and trailing slashes are dropped.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty base url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("base url %q has no host", raw)
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	if port := parsed.Port(); port != "" {
		host = host + ":" + port
	}

	parsed.Host = host
	parsed.User = nil
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	return parsed.String(), nil
}

// TranscriptURL builds the shareable dashboard link for a transcript.
func TranscriptURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/transcripts/" + url.PathEscape(id)
}

// ChannelRefs returns the distinct channel ids referenced as <#id> in content.
func ChannelRefs(content string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, match := range channelRefRegex.FindAllStringSubmatch(content, -1) {
		if seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		ids = append(ids, match[1])
	}
	return ids
}
