package bitmap

import "math/bits"

// Big is a growable bit set, indexed from 0. The zero value (via Make) is
// usable directly; it grows its backing words on first Set past its
// current capacity.
type Big struct {
	b  []uint64
	b0 [1]uint64
}

// Make returns an empty, ready-to-use Big.
func Make() Big {
	s := Big{}
	s.b = s.b0[:]

	return s
}

// Set marks bit i as present, growing the backing storage if needed.
func (s *Big) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

// Clear marks bit i as absent. Clearing a bit past current capacity is a
// no-op: there is nothing set there to clear.
func (s Big) Clear(i int) {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

// IsSet reports whether bit i is present.
func (s Big) IsSet(i int) bool {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return (s.b[i] & (1 << j)) != 0
}

// Or sets every bit that is set in x, growing to cover x's range.
func (s *Big) Or(x Big) {
	s.grow(len(x.b))

	for i, x := range x.b {
		s.b[i] |= x
	}
}

// OrCopy returns a copy of s with x unioned in, leaving both inputs
// unmodified.
func (s *Big) OrCopy(x Big) Big {
	cp := s.Copy()
	cp.Or(x)
	return cp
}

// AndNot clears every bit in s that is set in x.
func (s Big) AndNot(x Big) {
	for i, x := range x.b {
		if i == len(s.b) {
			break
		}

		s.b[i] &^= x
	}
}

// AndNotCopy returns a copy of s with every bit in x cleared, leaving both
// inputs unmodified.
func (s Big) AndNotCopy(x Big) Big {
	cp := s.Copy()
	cp.AndNot(x)

	return cp
}

// Copy returns an independent duplicate of s.
func (s Big) Copy() Big {
	r := Make()
	r.Or(s)
	return r
}

// Size returns the number of bits currently set.
func (s *Big) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

// Range calls f once per set bit, in ascending order, until f returns
// false.
func (s Big) Range(f func(i int) bool) {
	for i, x := range s.b {
		if x == 0 {
			continue
		}

		for j := 0; j < 64; j++ {
			if (x & (1 << j)) == 0 {
				continue
			}

			if !f(i*64 + j) {
				return
			}
		}
	}
}

func (s Big) ij(pos int) (i int, j int) {
	i, j = pos/64, pos%64

	return i, j
}

func (s *Big) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
