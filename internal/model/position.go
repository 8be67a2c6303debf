package model

// Point is a location in source text. Line is 1-based, Column is a 0-based
// byte column and ByteOffset is the 0-based offset from the start of the file.
type Point struct {
	Line       int `json:"line"`
	Column     int `json:"column"`
	ByteOffset int `json:"byteOffset"`
}

// Before reports whether p is strictly before o in byte order.
func (p Point) Before(o Point) bool {
	return p.ByteOffset < o.ByteOffset
}

// TextRange is a span of source text derived from a syntax node.
type TextRange struct {
	Start Point  `json:"start"`
	End   Point  `json:"end"`
	Text  string `json:"text,omitempty"`
}

// Contains reports whether r fully covers o.
func (r TextRange) Contains(o TextRange) bool {
	return r.Start.ByteOffset <= o.Start.ByteOffset && o.End.ByteOffset <= r.End.ByteOffset
}

// Position converts r into the struct-level position record.
func (r TextRange) Position() CodePosition {
	return CodePosition{
		StartLine:         r.Start.Line,
		StartLinePosition: r.Start.Column,
		StopLine:          r.End.Line,
		StopLinePosition:  r.End.Column,
		StartOffset:       r.Start.ByteOffset,
		StopOffset:        r.End.ByteOffset,
	}
}

// CodePosition locates a declaration in its file.
type CodePosition struct {
	StartLine         int `json:"StartLine"`
	StartLinePosition int `json:"StartLinePosition"`
	StopLine          int `json:"StopLine"`
	StopLinePosition  int `json:"StopLinePosition"`
	StartOffset       int `json:"StartOffset"`
	StopOffset        int `json:"StopOffset"`
}
