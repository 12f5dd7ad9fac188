package audio

// PreRoll keeps the most recent audio frames while nobody is speaking, so
// the frames the VAD needed to confirm speech can still reach the recognizer.
// Older frames are overwritten. It is not safe for concurrent use.
type PreRoll struct {
	frames [][]byte
	next   int
	count  int
}

// NewPreRoll creates a buffer holding up to size frames
func NewPreRoll(size int) *PreRoll {
	if size < 1 {
		size = 1
	}
	return &PreRoll{frames: make([][]byte, size)}
}

// Push stores a frame, evicting the oldest one when full
func (p *PreRoll) Push(frame []byte) {
	p.frames[p.next] = frame
	p.next = (p.next + 1) % len(p.frames)
	if p.count < len(p.frames) {
		p.count++
	}
}

// Drain returns the buffered frames oldest first and empties the buffer
func (p *PreRoll) Drain() [][]byte {
	out := make([][]byte, 0, p.count)
	start := (p.next - p.count + len(p.frames)) % len(p.frames)
	for i := 0; i < p.count; i++ {
		idx := (start + i) % len(p.frames)
		out = append(out, p.frames[idx])
		p.frames[idx] = nil
	}
	p.count = 0
	p.next = 0
	return out
}

// Len returns the number of buffered frames
func (p *PreRoll) Len() int {
	return p.count
}
