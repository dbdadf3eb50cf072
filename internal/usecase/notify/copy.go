package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Copy holds the user-facing notification texts.
type Copy struct {
	UrgentTitle   string `yaml:"urgent_title"`
	NearbyTitle   string `yaml:"nearby_title"`
	FallbackBody  string `yaml:"fallback_body"`
	ResolvedTitle string `yaml:"resolved_title"`
	ResolvedBody  string `yaml:"resolved_body"`
}

// DefaultCopy returns the built-in English texts.
func DefaultCopy() Copy {
	return Copy{
		UrgentTitle:   "Urgent: Your car may need attention",
		NearbyTitle:   "Nearby car alert",
		FallbackBody:  "A car issue was reported nearby.",
		ResolvedTitle: "Thanks! The car owner resolved it",
		ResolvedBody:  "Your report was marked as resolved.",
	}
}

// LoadCopy reads a YAML file of overrides on top of DefaultCopy. An empty
// path returns the defaults. Keys that are missing or blank keep their default.
//
// Example file:
//
//	urgent_title: "Dringend: Ihr Auto braucht Aufmerksamkeit"
//	nearby_title: "Auto-Hinweis in der Nähe"
func LoadCopy(path string) (Copy, error) {
	defaults := DefaultCopy()
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("LoadCopy: %w", err)
	}

	var overrides Copy
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return defaults, fmt.Errorf("LoadCopy: parse %s: %w", path, err)
	}

	return overrides.withDefaults(defaults), nil
}

func (c Copy) withDefaults(d Copy) Copy {
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return Copy{
		UrgentTitle:   pick(c.UrgentTitle, d.UrgentTitle),
		NearbyTitle:   pick(c.NearbyTitle, d.NearbyTitle),
		FallbackBody:  pick(c.FallbackBody, d.FallbackBody),
		ResolvedTitle: pick(c.ResolvedTitle, d.ResolvedTitle),
		ResolvedBody:  pick(c.ResolvedBody, d.ResolvedBody),
	}
}
