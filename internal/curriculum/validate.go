package curriculum

import (
	"fmt"
	"strings"
)

// validateModules performs all structural checks on a module list.
// Returns a combined error describing every problem found, or nil.
func validateModules(modules []Module) error {
	var errs []string

	if len(modules) == 0 {
		errs = append(errs, "curriculum has no modules")
	}

	ids := make(map[string]bool, len(modules))
	for _, m := range modules {
		if m.ID == "" {
			errs = append(errs, "module with empty id")
			continue
		}
		if strings.Contains(m.ID, "/") {
			errs = append(errs, fmt.Sprintf("module id %q must not contain '/'", m.ID))
		}
		if ids[m.ID] {
			errs = append(errs, fmt.Sprintf("duplicate module id: %q", m.ID))
		}
		ids[m.ID] = true

		if !m.Tier.Valid() || m.Tier == "completed" {
			errs = append(errs, fmt.Sprintf("module %q has unknown tier %q", m.ID, m.Tier))
		}
		if len(m.Lessons) == 0 {
			errs = append(errs, fmt.Sprintf("module %q has no lessons", m.ID))
		}

		lessons := make(map[string]bool, len(m.Lessons))
		for _, l := range m.Lessons {
			if l == "" || strings.Contains(l, "/") {
				errs = append(errs, fmt.Sprintf("module %q has invalid lesson slug %q", m.ID, l))
				continue
			}
			if lessons[l] {
				errs = append(errs, fmt.Sprintf("module %q lists lesson %q twice", m.ID, l))
			}
			lessons[l] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("curriculum validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
