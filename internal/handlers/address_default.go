package handlers

import "storefront/internal/models"

// The planners below compute the post-operation address slice for one
// user. They never touch the database: the handler loads the user, plans,
// then commits the whole slice with a conditional update on the user's
// version field. Exactly one default must exist whenever the user has any
// addresses, and zero when they have none.

// planAddressCreate appends addr and keeps the default invariant: the
// first address is always default, overriding whatever the caller sent;
// an explicit default on a later address demotes every sibling within the
// same planned write.
func planAddressCreate(existing []models.Address, addr models.Address) []models.Address {
	planned := make([]models.Address, len(existing), len(existing)+1)
	copy(planned, existing)

	if len(planned) == 0 {
		addr.IsDefault = true
	} else if addr.IsDefault {
		for i := range planned {
			planned[i].IsDefault = false
		}
	}

	return append(planned, addr)
}

// planAddressDelete removes the address with the given id. When the
// removed address was the default and others remain, the earliest
// remaining address (slice order is creation order) is promoted in the
// same planned write, so no committed state has zero defaults among one
// or more addresses. The second return reports whether the id existed.
func planAddressDelete(existing []models.Address, addressID string) ([]models.Address, bool) {
	planned := make([]models.Address, 0, len(existing))
	found := false
	wasDefault := false

	for _, addr := range existing {
		if addr.ID == addressID {
			found = true
			wasDefault = addr.IsDefault
			continue
		}
		planned = append(planned, addr)
	}

	if !found {
		return existing, false
	}

	if wasDefault && len(planned) > 0 && defaultAddressCount(planned) == 0 {
		planned[0].IsDefault = true
	}

	return planned, true
}

// planAddressUpdate rewrites the address with the given id. Marking it
// default demotes every sibling; clearing the flag on the current sole
// default is ignored, because a default can move to another address but
// never vanish while addresses exist. Returns the index of the updated
// address, or -1 when the id does not exist.
func planAddressUpdate(existing []models.Address, addressID string, updated models.Address) ([]models.Address, int) {
	index := -1
	for i, addr := range existing {
		if addr.ID == addressID {
			index = i
			break
		}
	}
	if index == -1 {
		return existing, -1
	}

	planned := make([]models.Address, len(existing))
	copy(planned, existing)

	current := planned[index]
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt

	if updated.IsDefault {
		for i := range planned {
			planned[i].IsDefault = false
		}
	} else if current.IsDefault {
		updated.IsDefault = true
	}

	planned[index] = updated
	return planned, index
}

func defaultAddressCount(addresses []models.Address) int {
	count := 0
	for _, addr := range addresses {
		if addr.IsDefault {
			count++
		}
	}
	return count
}
