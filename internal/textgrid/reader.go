package textgrid

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	fieldLine = regexp.MustCompile(`^([A-Za-z :?]+?)\s*=\s*(.*)$`)
	indexLine = regexp.MustCompile(`^(item|intervals|points)\s*\[(\d*)\]:?$`)
)

// Read parses a TextGrid in Praat's long text format. Intervals and points
// are taken in file order; declared sizes are checked once the file ends.
func Read(r io.Reader) (*TextGrid, error) {
	p := &parser{sc: bufio.NewScanner(r)}
	p.sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return p.parse()
}

type parser struct {
	sc   *bufio.Scanner
	line int

	tg       *TextGrid
	tier     *Tier
	interval *Interval
	point    *Point
	sizes    map[*Tier]int
}

func (p *parser) parse() (*TextGrid, error) {
	p.tg = &TextGrid{}
	p.sizes = make(map[*Tier]int)
	header := 0

	for p.sc.Scan() {
		p.line++
		line := strings.TrimSpace(p.sc.Text())
		if p.line == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}

		if m := indexLine.FindStringSubmatch(line); m != nil {
			p.openIndex(m[1], m[2])
			continue
		}

		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			if strings.HasPrefix(line, "tiers?") {
				continue
			}
			return nil, p.errorf("unexpected line %q", line)
		}
		key, raw := strings.TrimSpace(m[1]), m[2]

		switch key {
		case "File type":
			header++
			if v, err := p.str(raw); err != nil || v != "ooTextFile" {
				return nil, p.errorf("not a Praat text file")
			}
		case "Object class":
			header++
			if v, err := p.str(raw); err != nil || v != "TextGrid" {
				return nil, p.errorf("object class is not TextGrid")
			}
		case "xmin", "xmax", "number", "time":
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, p.errorf("invalid %s: %v", key, err)
			}
			p.setTime(key, v)
		case "class", "name", "text", "mark":
			v, err := p.str(raw)
			if err != nil {
				return nil, err
			}
			if err := p.setText(key, v); err != nil {
				return nil, err
			}
		case "size", "intervals: size", "points: size":
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, p.errorf("invalid size: %v", err)
			}
			if p.tier != nil && key != "size" {
				p.sizes[p.tier] = n
			}
		default:
			return nil, p.errorf("unknown field %q", key)
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("read textgrid: %w", err)
	}
	if header < 2 {
		return nil, fmt.Errorf("read textgrid: missing header")
	}
	p.flush()

	for _, t := range p.tg.Tiers {
		want, ok := p.sizes[t]
		if !ok {
			continue
		}
		got := len(t.Intervals)
		if !t.IsInterval() {
			got = len(t.Points)
		}
		if got != want {
			return nil, fmt.Errorf("read textgrid: tier %q declares %d items, found %d", t.Name, want, got)
		}
	}
	return p.tg, nil
}

func (p *parser) openIndex(kind, idx string) {
	switch kind {
	case "item":
		if idx == "" {
			return
		}
		p.flush()
		p.tier = &Tier{}
		p.tg.Tiers = append(p.tg.Tiers, p.tier)
	case "intervals":
		p.flush()
		p.interval = &Interval{}
	case "points":
		p.flush()
		p.point = &Point{}
	}
}

// flush appends the pending interval or point to the current tier.
func (p *parser) flush() {
	if p.tier != nil && p.interval != nil {
		p.tier.Intervals = append(p.tier.Intervals, *p.interval)
	}
	if p.tier != nil && p.point != nil {
		p.tier.Points = append(p.tier.Points, *p.point)
	}
	p.interval, p.point = nil, nil
}

func (p *parser) setTime(key string, v float64) {
	switch {
	case p.interval != nil:
		if key == "xmin" {
			p.interval.XMin = v
		} else {
			p.interval.XMax = v
		}
	case p.point != nil:
		p.point.Time = v
	case p.tier != nil:
		if key == "xmin" {
			p.tier.XMin = v
		} else {
			p.tier.XMax = v
		}
	default:
		if key == "xmin" {
			p.tg.XMin = v
		} else {
			p.tg.XMax = v
		}
	}
}

func (p *parser) setText(key, v string) error {
	switch key {
	case "class":
		if p.tier == nil {
			return p.errorf("class outside of a tier")
		}
		if v != IntervalTierClass && v != PointTierClass {
			return p.errorf("unknown tier class %q", v)
		}
		p.tier.Class = v
	case "name":
		if p.tier == nil {
			return p.errorf("name outside of a tier")
		}
		p.tier.Name = v
	case "text":
		if p.interval == nil {
			return p.errorf("text outside of an interval")
		}
		p.interval.Text = v
	case "mark":
		if p.point == nil {
			return p.errorf("mark outside of a point")
		}
		p.point.Mark = v
	}
	return nil
}

// str decodes a quoted string value. Quotes inside the value are doubled;
// a value may continue over several lines.
func (p *parser) str(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, `"`) {
		return "", p.errorf("expected quoted string, got %q", raw)
	}
	var b strings.Builder
	rest := raw[1:]
	for {
		for i := 0; i < len(rest); i++ {
			if rest[i] != '"' {
				b.WriteByte(rest[i])
				continue
			}
			if i+1 < len(rest) && rest[i+1] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			return b.String(), nil
		}
		if !p.sc.Scan() {
			return "", p.errorf("unterminated string")
		}
		p.line++
		b.WriteByte('\n')
		rest = p.sc.Text()
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("read textgrid: line %d: %s", p.line, fmt.Sprintf(format, args...))
}
