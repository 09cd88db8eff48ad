// Package contacts resolves a decision-maker contact for a company, backed by
// a 30-day cache and a rate-limited external lookup provider.
package contacts

import (
	"strings"
	"time"
)

// ContactTTL is how long a resolved contact stays current before a fresh
// lookup supersedes it.
const ContactTTL = 30 * 24 * time.Hour

// Contact is a resolved decision-maker for one company.
type Contact struct {
	CompanyID  string    `json:"company_id"`
	Name       string    `json:"name"`
	ProfileURL string    `json:"profile_url"`
	Title      string    `json:"title"`
	ResolvedAt time.Time `json:"resolved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Valid      bool      `json:"valid"`
}

// Current reports whether the contact is still usable at the given time.
func (c *Contact) Current(now time.Time) bool {
	return c != nil && c.Valid && now.Before(c.ExpiresAt)
}

// acceptedTitles is the decision-maker allow-list. Keys are normalized.
var acceptedTitles = map[string]struct{}{
	"ceo":               {},
	"founder":           {},
	"co-founder":        {},
	"cfo":               {},
	"managing director": {},
	"director":          {},
	"practice manager":  {},
	"general manager":   {},
}

// TitleAccepted reports whether the given job title belongs to the
// decision-maker allow-list. Matching is case-insensitive and treats
// "Co Founder" and "Co-Founder" the same.
func TitleAccepted(title string) bool {
	normalized := strings.ToLower(strings.TrimSpace(title))
	normalized = strings.ReplaceAll(normalized, "co founder", "co-founder")
	normalized = strings.Join(strings.Fields(normalized), " ")

	_, ok := acceptedTitles[normalized]
	return ok
}
