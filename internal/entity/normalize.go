package entity

import "strings"

// Normalize maps empty optional text to nil. Absent shipping charges decode
// as zero; negative ones are left for the validator to reject. Applying it
// twice yields the same value.
func Normalize(in OrderInput) OrderInput {
	in.Email = optional(in.Email)
	in.SocialMediaHandle = optional(in.SocialMediaHandle)
	in.CourierReceipt = optional(in.CourierReceipt)
	in.SentDate = optional(in.SentDate)
	in.Notes = optional(in.Notes)

	if in.Items != nil {
		in.Items = append([]OrderItem(nil), in.Items...)
	}

	return in
}

func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	v := *s

	return &v
}
