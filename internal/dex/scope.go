package dex

// Scope is the ordered sequence of classes under analysis. Order follows
// the program image and is preserved so repeated runs see identical input.
type Scope struct {
	classes []*Class
	byType  map[*Type]*Class
	index   map[*Type]int
}

// NewScope creates a scope over the given classes.
func NewScope(classes []*Class) *Scope {
	s := &Scope{
		classes: classes,
		byType:  make(map[*Type]*Class, len(classes)),
		index:   make(map[*Type]int, len(classes)),
	}
	for i, cls := range classes {
		s.byType[cls.Type] = cls
		s.index[cls.Type] = i
	}
	return s
}

// Classes returns the classes in image order.
func (s *Scope) Classes() []*Class {
	return s.classes
}

// ClassOf returns the class definition for a type, or nil for types not
// defined in the image (e.g. library types).
func (s *Scope) ClassOf(t *Type) *Class {
	return s.byType[t]
}

// IndexOf returns the stable image index of a type, or -1 if not defined.
func (s *Scope) IndexOf(t *Type) int {
	if idx, ok := s.index[t]; ok {
		return idx
	}
	return -1
}

// Len returns the number of classes in the scope.
func (s *Scope) Len() int {
	return len(s.classes)
}
