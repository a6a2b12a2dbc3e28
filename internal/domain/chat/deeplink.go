package chat

import (
	"net/url"
	"strings"
)

const (
	ParamAdID          = "adId"
	ParamParticipantID = "participantId"
)

// DeepLink asks the chat view to open the conversation about an ad with a
// given participant, usually the seller.
type DeepLink struct {
	AdID          string
	ParticipantID string
}

func ParseDeepLink(q url.Values) DeepLink {
	return DeepLink{
		AdID:          strings.TrimSpace(q.Get(ParamAdID)),
		ParticipantID: strings.TrimSpace(q.Get(ParamParticipantID)),
	}
}

// Complete reports whether both identifiers are present.
func (l DeepLink) Complete() bool {
	return l.AdID != "" && l.ParticipantID != ""
}

// Query renders the link as chat page query parameters.
func (l DeepLink) Query() url.Values {
	q := url.Values{}
	if l.AdID != "" {
		q.Set(ParamAdID, l.AdID)
	}
	if l.ParticipantID != "" {
		q.Set(ParamParticipantID, l.ParticipantID)
	}
	return q
}
