package services

import (
	"fmt"

	"waiver-sync/pkg/models"
)

// firstNonEmpty returns the first non-empty string in order.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ExtractProfile normalizes a raw waiver into a canonical participant profile.
// It is total over partially-populated input: every missing field has a
// defined default, and the returned email is never empty. Waivers without any
// email get a deterministic placeholder keyed by the waiver identifier.
func ExtractProfile(w *models.Waiver, placeholderDomain string) models.Profile {
	email := firstNonEmpty(w.Email, w.Participant.Email)
	if email == "" {
		email = fmt.Sprintf("%s@noemail.%s", w.WaiverID, placeholderDomain)
	}

	phoneCandidates := []string{w.Phone, w.Participant.Phone, w.Participant.Mobile}
	if len(w.Participants) > 0 {
		phoneCandidates = append(phoneCandidates, w.Participants[0].Phone)
	}

	return models.Profile{
		Email:       email,
		FirstName:   firstNonEmpty(w.FirstName, w.Participant.FirstName, "Unknown"),
		LastName:    firstNonEmpty(w.LastName, w.Participant.LastName, "Unknown"),
		Phone:       firstNonEmpty(phoneCandidates...),
		DateOfBirth: firstNonEmpty(w.DOB, w.Participant.DateOfBirth),
	}
}
