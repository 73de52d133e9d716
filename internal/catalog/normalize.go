package catalog

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// fieldAliases lists, per canonical field, the normalized source keys that
// carry it. The first non-empty alias wins.
var fieldAliases = map[string][]string{
	"name":        {"name", "title", "assessment_name", "assessment"},
	"url":         {"url", "link", "assessment_url"},
	"description": {"description", "desc", "summary"},
	"test_type":   {"test_type", "type", "category", "test_types"},
	"duration":    {"duration", "duration_minutes", "assessment_length", "duration_mins"},
	"remote":      {"remote_testing_support", "remote_testing", "supports_remote_testing", "remote_support"},
	"adaptive":    {"adaptive_irt_support", "adaptive_irt", "adaptive", "adaptive_support"},
}

// normalizeKey turns "Adaptive/IRT Support" into "adaptive_irt_support".
func normalizeKey(key string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimPrefix(key, "\ufeff")) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func lookup(record map[string]string, field string) string {
	for _, alias := range fieldAliases[field] {
		if v := strings.TrimSpace(record[alias]); v != "" {
			return v
		}
	}
	return ""
}

// toAssessment maps a raw record whose keys are already normalized.
func toAssessment(record map[string]string) Assessment {
	return Assessment{
		Name:          collapseSpace(lookup(record, "name")),
		URL:           repairURL(lookup(record, "url")),
		Description:   cleanHTML(lookup(record, "description")),
		TestType:      collapseSpace(lookup(record, "test_type")),
		Duration:      parseDuration(lookup(record, "duration")),
		RemoteTesting: parseFlag(lookup(record, "remote")),
		AdaptiveIRT:   parseFlag(lookup(record, "adaptive")),
	}
}

// repairURL adds a scheme to bare links such as "shl.com/python". Anything it
// cannot repair is returned unchanged for validation to catch.
func repairURL(raw string) string {
	switch {
	case raw == "", strings.Contains(raw, "://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	}
	host, _, _ := strings.Cut(raw, "/")
	if !strings.Contains(host, ".") || strings.ContainsAny(host, "@:") || strings.ContainsFunc(raw, unicode.IsSpace) {
		return raw
	}
	return "https://" + raw
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "t", "1", "supported":
		return true
	default:
		return false
	}
}

var digits = regexp.MustCompile(`\d+`)

// parseDuration extracts minutes from values such as "30", "30 min" or
// "Approximate Completion Time in minutes = 30". Anything else is 0.
func parseDuration(value string) int {
	match := digits.FindString(value)
	if match == "" {
		return 0
	}
	minutes, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return minutes
}

func collapseSpace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// cleanHTML extracts visible text from description markup, skipping script
// and style elements.
func cleanHTML(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return collapseSpace(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var textBuilder strings.Builder
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return collapseSpace(textBuilder.String())
			}
			return collapseSpace(input)

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}

		case html.TextToken:
			if skip == 0 {
				textBuilder.WriteString(tokenizer.Token().Data)
				textBuilder.WriteByte(' ')
			}
		}
	}
}
