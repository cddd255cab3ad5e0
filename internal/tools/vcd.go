package tools

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WaveSummary 是 VCD 文件的概要，用于在日志末尾展示仿真波形规模。
type WaveSummary struct {
	Timescale string
	Signals   []string
	Changes   int
	EndTime   int64
}

func (s WaveSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "signals=%d changes=%d end_time=%d", len(s.Signals), s.Changes, s.EndTime)
	if s.Timescale != "" {
		fmt.Fprintf(&b, " timescale=%s", s.Timescale)
	}
	if len(s.Signals) > 0 {
		shown := s.Signals
		if len(shown) > 8 {
			shown = shown[:8]
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(shown, ", "))
		if len(s.Signals) > len(shown) {
			fmt.Fprintf(&b, ", ... (+%d)", len(s.Signals)-len(shown))
		}
	}
	return b.String()
}

// SummarizeVCD 扫描 VCD 文本：统计 $var 声明、值变化次数和最后的时间戳。
func SummarizeVCD(r io.Reader) (WaveSummary, error) {
	var sum WaveSummary
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	inTimescale := false
	inDefs := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if inDefs {
			switch {
			case strings.HasPrefix(line, "$timescale"):
				rest := strings.TrimSpace(strings.TrimPrefix(line, "$timescale"))
				rest = strings.TrimSpace(strings.TrimSuffix(rest, "$end"))
				if rest != "" {
					sum.Timescale = rest
				} else {
					inTimescale = true
				}
			case inTimescale:
				if line == "$end" {
					inTimescale = false
				} else {
					sum.Timescale = strings.TrimSpace(strings.TrimSuffix(line, "$end"))
					inTimescale = !strings.HasSuffix(line, "$end")
				}
			case strings.HasPrefix(line, "$var"):
				// $var wire 8 ! a_tb [7:0] $end
				fields := strings.Fields(line)
				if len(fields) >= 5 {
					sum.Signals = append(sum.Signals, fields[4])
				}
			case strings.HasPrefix(line, "$enddefinitions"):
				inDefs = false
			}
			continue
		}
		switch line[0] {
		case '#':
			if t, err := strconv.ParseInt(line[1:], 10, 64); err == nil {
				sum.EndTime = t
			}
		case '$':
			// $dumpvars / $end 等块标记
		default:
			sum.Changes++
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}
