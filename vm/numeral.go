package vm

import "encoding/binary"

// WordSize is the payload size of a numeral.
const WordSize = 8

// InvalidNum is what GetNum reports for a lambda that is not a numeral.
const InvalidNum = ^uint64(0)

// EOFNum is the numeral getc returns at end of input, one past the largest
// byte value.
const EOFNum = 256

// MkNum allocates a numeral holding n.
func (rt *Runtime) MkNum(n uint64) *Lambda {
	l := rt.Alloc(0, WordSize)
	binary.LittleEndian.PutUint64(l.payload, n)
	l.SetImpl(KindNumeral, numImpl)
	return l
}

// GetNum reads the numeral stored in l. Any lambda whose payload is
// exactly one word reads as a numeral; anything else yields InvalidNum and
// false.
func GetNum(l *Lambda) (uint64, bool) {
	if len(l.payload) != WordSize {
		return InvalidNum, false
	}
	return binary.LittleEndian.Uint64(l.payload), true
}

// numImpl: a numeral applied to anything returns itself.
func numImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	rt.Release(arg)
	return rt.ContCall(self, cont)
}
