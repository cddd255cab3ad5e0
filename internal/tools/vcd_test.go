package tools

import (
	"strings"
	"testing"
)

func TestSummarizeVCD(t *testing.T) {
	const vcd = `$date today $end
$timescale
	1ps
$end
$scope module testbench $end
$var wire 8 ! a_tb [7:0] $end
$var wire 8 " b_tb [7:0] $end
$var wire 9 # sum_tb [8:0] $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
b0 !
b0 "
b0 #
$end
#10
b1 !
b1 "
b10 #
#50
`
	sum, err := SummarizeVCD(strings.NewReader(vcd))
	if err != nil {
		t.Fatalf("SummarizeVCD: %v", err)
	}
	if sum.Timescale != "1ps" {
		t.Fatalf("Timescale = %q", sum.Timescale)
	}
	if got := strings.Join(sum.Signals, ","); got != "a_tb,b_tb,sum_tb" {
		t.Fatalf("Signals = %q", got)
	}
	if sum.Changes != 6 {
		t.Fatalf("Changes = %d, want 6", sum.Changes)
	}
	if sum.EndTime != 50 {
		t.Fatalf("EndTime = %d, want 50", sum.EndTime)
	}
	if !strings.HasPrefix(sum.String(), "signals=3 changes=6 end_time=50 timescale=1ps") {
		t.Fatalf("String() = %q", sum.String())
	}
}
