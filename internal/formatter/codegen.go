package formatter

import (
	"strings"
)

// block is an indented source block. A level 0 block renders its lines
// as-is; deeper blocks are wrapped in `head {` ... `}` and indent their
// lines by one tab per level.
type block struct {
	level int
	head  string
	body  strings.Builder
}

func newBlock(level int, head string) *block {
	return &block{level: level, head: head}
}

func (b *block) line(s string) *block {
	if s != "" {
		b.body.WriteString(strings.Repeat("\t", b.level))
		b.body.WriteString(s)
	}
	b.body.WriteByte('\n')
	return b
}

func (b *block) lineIf(cond bool, s string) *block {
	if cond {
		b.line(s)
	}
	return b
}

func (b *block) skip() *block {
	b.body.WriteByte('\n')
	return b
}

func (b *block) block(child *block) *block {
	b.body.WriteString(child.String())
	return b
}

func (b *block) blocks(children []*block) *block {
	for _, c := range children {
		b.skip().block(c)
	}
	return b
}

func (b *block) String() string {
	if b.level == 0 {
		return b.body.String()
	}

	indent := strings.Repeat("\t", b.level-1)
	var out strings.Builder
	out.WriteString(indent)
	if b.head != "" {
		out.WriteString(b.head)
		out.WriteByte(' ')
	}
	out.WriteString("{\n")
	out.WriteString(b.body.String())
	out.WriteString(indent)
	out.WriteString("}\n")
	return out.String()
}
