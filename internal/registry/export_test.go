package registry

// SetRand replaces the ID source.
func (r *Registry) SetRand(fn func() (uint64, error)) { r.rand = fn }
