package models

import "strings"

// Relations and media types of the WebFinger links, in the order peers expect them.
const (
	RelProfilePage = "http://webfinger.net/rel/profile-page"
	RelUpdatesFrom = "http://schemas.google.com/g/2010#updates-from"
	RelSelf        = "self"

	TypeAtom     = "application/atom+xml"
	TypeActivity = "application/activity+json"
	TypeJRD      = "application/jrd+json"
)

// WebFingerResp is a JRD document.
type WebFingerResp struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

// Self returns the href of the ActivityPub self link, if any.
func (w *WebFingerResp) Self() (string, bool) {
	for _, l := range w.Links {
		if l.Rel == RelSelf && (l.Type == TypeActivity || strings.HasPrefix(l.Type, "application/ld+json")) {
			return l.Href, true
		}
	}
	return "", false
}
