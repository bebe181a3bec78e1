package filter

// reader walks the query rune by rune, tracking line and position for
// error reporting.
type reader struct {
	src  []rune
	idx  int
	line int
	pos  int
}

func newReader(src string) *reader {
	return &reader{src: []rune(src), line: 1, pos: 1}
}

// peek returns the current rune without consuming it, or 0 at the end.
func (r *reader) peek() (rune, bool) {
	if r.idx >= len(r.src) {
		return 0, false
	}
	return r.src[r.idx], true
}

func (r *reader) next() (rune, bool) {
	c, ok := r.peek()
	r.advance()
	return c, ok
}

func (r *reader) advance() {
	if r.idx >= len(r.src) {
		return
	}
	if r.src[r.idx] == '\n' {
		r.line++
		r.pos = 1
	} else {
		r.pos++
	}
	r.idx++
}

func (r *reader) position() (int, int) {
	return r.line, r.pos
}
