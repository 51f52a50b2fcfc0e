package vm

// Scope owns a set of references for the duration of a primitive and
// releases whatever it still owns when closed. References handed on to a
// result or continuation are removed with Forward.
//
//	s := rt.Enter(arg, self)
//	defer s.Close()
//	...
//	return rt.ContCall(s.Forward(arg), cont)
type Scope struct {
	rt    *Runtime
	owned []*Lambda
}

// Enter takes ownership of one reference to each of objs. Nil entries are
// ignored.
func (rt *Runtime) Enter(objs ...*Lambda) Scope {
	s := Scope{rt: rt, owned: make([]*Lambda, 0, len(objs))}
	for _, l := range objs {
		if l != nil {
			s.owned = append(s.owned, l)
		}
	}
	return s
}

// Own adds a reference to the scope and returns it.
func (s *Scope) Own(l *Lambda) *Lambda {
	s.owned = append(s.owned, l)
	return l
}

// Forward removes one owned reference to l from the scope and returns l.
// Ownership of that reference passes to the caller.
func (s *Scope) Forward(l *Lambda) *Lambda {
	for i := len(s.owned) - 1; i >= 0; i-- {
		if s.owned[i] == l {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			return l
		}
	}
	s.rt.abortObj(ErrScopeNotOwned, l)
	return nil
}

// Close releases every reference still owned. It is safe to call more
// than once.
func (s *Scope) Close() {
	owned := s.owned
	s.owned = nil
	for _, l := range owned {
		s.rt.Release(l)
	}
}

// Len returns the number of references the scope still owns.
func (s *Scope) Len() int { return len(s.owned) }
