package core

import (
	"encoding/json"
	"fmt"
	"strconv"

	"budgetcore/pkg/domain"
)

// localSource reports where loadLocalSnapshot found its data.
type localSource string

const (
	sourceAgencies localSource = "agencies"
	sourceLegacy   localSource = "legacy"
	sourceDefaults localSource = "defaults"
)

// loadLocalSnapshot reads the multi-agency layout from the cache. When it is
// absent the legacy single-agency keys are folded into one agency, and when
// those are absent too the default snapshot is returned.
func loadLocalSnapshot(cache domain.LocalCache) (domain.Snapshot, localSource, error) {
	raw, ok, err := cache.Get(domain.KeyAgencies)
	if err != nil {
		return domain.Snapshot{}, "", fmt.Errorf("read %s: %w", domain.KeyAgencies, err)
	}
	if ok {
		var agencies []domain.Agency
		if err := json.Unmarshal([]byte(raw), &agencies); err != nil {
			return domain.Snapshot{}, "", fmt.Errorf("decode %s: %w", domain.KeyAgencies, err)
		}
		if len(agencies) > 0 {
			current, _, err := cache.Get(domain.KeyCurrentAgencyID)
			if err != nil {
				return domain.Snapshot{}, "", fmt.Errorf("read %s: %w", domain.KeyCurrentAgencyID, err)
			}
			snap := domain.Snapshot{Agencies: agencies, CurrentAgencyID: current}
			snap.Normalize()
			return snap, sourceAgencies, nil
		}
	}
	if snap, found, err := loadLegacySnapshot(cache); err != nil || found {
		return snap, sourceLegacy, err
	}
	return domain.DefaultSnapshot(), sourceDefaults, nil
}

func loadLegacySnapshot(cache domain.LocalCache) (domain.Snapshot, bool, error) {
	rawProjects, hasProjects, err := cache.Get(domain.KeyLegacyProjects)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read %s: %w", domain.KeyLegacyProjects, err)
	}
	if !hasProjects {
		return domain.Snapshot{}, false, nil
	}
	agency := domain.DefaultAgency()
	agency.Projects = nil
	if err := json.Unmarshal([]byte(rawProjects), &agency.Projects); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode %s: %w", domain.KeyLegacyProjects, err)
	}
	if raw, ok, err := cache.Get(domain.KeyLegacyCategories); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read %s: %w", domain.KeyLegacyCategories, err)
	} else if ok {
		var categories []string
		if err := json.Unmarshal([]byte(raw), &categories); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("decode %s: %w", domain.KeyLegacyCategories, err)
		}
		if len(categories) > 0 {
			agency.Categories = categories
		}
	}
	if raw, ok, err := cache.Get(domain.KeyLegacyBudget); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read %s: %w", domain.KeyLegacyBudget, err)
	} else if ok {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("decode %s: %w", domain.KeyLegacyBudget, err)
		}
		agency.TotalAllocatedBudget = budget
	}
	snap := domain.Snapshot{Agencies: []domain.Agency{agency}, CurrentAgencyID: agency.ID}
	snap.Normalize()
	return snap, true, nil
}

// saveLocalSnapshot writes the agency list and the current-agency id.
func saveLocalSnapshot(cache domain.LocalCache, snap domain.Snapshot) error {
	snap.Normalize()
	payload, err := json.Marshal(snap.Agencies)
	if err != nil {
		return fmt.Errorf("encode %s: %w", domain.KeyAgencies, err)
	}
	if err := cache.Set(domain.KeyAgencies, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", domain.KeyAgencies, err)
	}
	if err := cache.Set(domain.KeyCurrentAgencyID, snap.CurrentAgencyID); err != nil {
		return fmt.Errorf("write %s: %w", domain.KeyCurrentAgencyID, err)
	}
	return nil
}
