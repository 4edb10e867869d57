package models

// Instance is a federation domain hosting actors.
type Instance struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PublicDomain string `json:"public_domain"`
	Local        bool   `json:"local"`
}

// BaseURL is the root every actor URL on this instance is derived from.
func (i *Instance) BaseURL() string {
	return "https://" + i.PublicDomain
}
