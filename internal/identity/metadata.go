package identity

import "encoding/json"

// Metadata holds the known user-profile fields the backend attaches to a
// user record, with a raw fallback for anything else. The backend treats
// this blob as free-form, so decoding is defensive: a malformed blob yields
// an empty Metadata rather than an error.
type Metadata struct {
	FullName    string
	Name        string
	DisplayName string
	GivenName   string
	Extra       map[string]any
}

func decodeMetadata(raw json.RawMessage) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}
	}

	md := Metadata{}
	for k, v := range m {
		s, _ := v.(string)
		switch k {
		case "full_name":
			md.FullName = s
		case "name":
			md.Name = s
		case "display_name":
			md.DisplayName = s
		case "given_name":
			md.GivenName = s
		default:
			if md.Extra == nil {
				md.Extra = make(map[string]any)
			}
			md.Extra[k] = v
		}
	}
	return md
}

// BestName returns the first usable profile name, in the order the fields
// are trusted: full_name, name, display_name, given_name. Empty when none
// is set.
func (m Metadata) BestName() string {
	for _, candidate := range []string{m.FullName, m.Name, m.DisplayName, m.GivenName} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
