package dex

// Dex is one dex container: a named, ordered list of the types it defines.
type Dex struct {
	Name  string
	Types []*Type
}

// StoresVector is the ordered dex layout of the program image. Dex index 0
// is the primary dex. It answers per-dex membership queries for the
// per-dex grouping constraint.
type StoresVector struct {
	dexes     []Dex
	typeToDex map[*Type]int
}

// NewStoresVector creates a stores vector from the ordered dex list.
func NewStoresVector(dexes []Dex) *StoresVector {
	s := &StoresVector{
		dexes:     dexes,
		typeToDex: make(map[*Type]int),
	}
	for i, d := range dexes {
		for _, t := range d.Types {
			if _, ok := s.typeToDex[t]; !ok {
				s.typeToDex[t] = i
			}
		}
	}
	return s
}

// DexFor returns the dex index holding the type.
func (s *StoresVector) DexFor(t *Type) (int, bool) {
	idx, ok := s.typeToDex[t]
	return idx, ok
}

// IsPrimaryDex reports whether the type resolves to the primary dex.
func (s *StoresVector) IsPrimaryDex(t *Type) bool {
	idx, ok := s.typeToDex[t]
	return ok && idx == 0
}

// NumDexes returns the number of dex containers.
func (s *StoresVector) NumDexes() int {
	return len(s.dexes)
}

// DexName returns the name of the dex at the given index.
func (s *StoresVector) DexName(idx int) string {
	if idx < 0 || idx >= len(s.dexes) {
		return ""
	}
	return s.dexes[idx].Name
}
