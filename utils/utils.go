package utils

import (
	rndm "math/rand"
	"regexp"
	"strings"
)

// --- Random String and ID Generators ---

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

// GenerateRandomString creates a random alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

// --- Slugs ---

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the title and collapses every run of non-alphanumeric
// characters to a single hyphen.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "post"
	}
	return slug
}

// --- Reading time ---

// ReadingTime estimates minutes to read at 200 words per minute,
// rounded up, minimum 1 for non-empty content.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + 199) / 200
}

// --- Tags ---

// NormalizeTags lowercases, trims and de-duplicates a tag list.
func NormalizeTags(input []string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, t := range input {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" || seen[tag] {
			continue
		}
		tags = append(tags, tag)
		seen[tag] = true
	}
	return tags
}

// --- Query params ---

// ParsePositiveInt returns the parsed value when it is a positive integer,
// otherwise def.
func ParsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return def
	}
	return n
}
