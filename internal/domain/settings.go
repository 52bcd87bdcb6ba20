package domain

// Settings is the static configuration stored next to the ticket set.
type Settings struct {
	// CategoryGroups maps a category to the organizational group its channels live in.
	CategoryGroups      map[Category]string     `json:"categories"`
	TranscriptChannelID string                  `json:"transcript_channel_id"`
	TeamRoleID          string                  `json:"team_role_id"`
	BannerURL           string                  `json:"banner_url"`
	Questions           map[Category][]Question `json:"questions,omitempty"`
}

// GroupFor returns the category group id, or false when the category is not configured.
func (s Settings) GroupFor(c Category) (string, bool) {
	id, ok := s.CategoryGroups[c]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
