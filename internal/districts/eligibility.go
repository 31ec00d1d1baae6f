package districts

// IsDistrictAllowed reports whether raw normalizes to any district.
func (r *Registry) IsDistrictAllowed(raw string) bool {
	return r.Normalize(raw) != None
}

// IsLocationAllowed is the stricter check: raw must normalize to a district
// and locality must be one of that district's settlements.
func (r *Registry) IsLocationAllowed(locality, raw string) bool {
	d := r.Normalize(raw)
	if d == None {
		return false
	}
	_, ok := r.localities[d][fold(locality)]
	return ok
}

// IsDistrictAllowed checks raw against the Default registry.
func IsDistrictAllowed(raw string) bool { return Default.IsDistrictAllowed(raw) }

// IsLocationAllowed checks locality and raw against the Default registry.
func IsLocationAllowed(locality, raw string) bool {
	return Default.IsLocationAllowed(locality, raw)
}
