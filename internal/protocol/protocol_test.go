package protocol

import "testing"

func TestDescriptorCanServe(t *testing.T) {
	single := Descriptor{Name: "single", Chains: []int64{1, 8453}, SingleChain: true}
	multi := Descriptor{Name: "multi", Chains: []int64{1, 8453, 42161}, MultiChain: true}
	both := Descriptor{Name: "both", Chains: []int64{1, 8453}, SingleChain: true, MultiChain: true}

	cases := []struct {
		name string
		d    Descriptor
		from int64
		to   int64
		want bool
	}{
		{name: "single same chain supported", d: single, from: 8453, to: 8453, want: true},
		{name: "single same chain unsupported", d: single, from: 10, to: 10, want: false},
		{name: "single cross chain", d: single, from: 1, to: 8453, want: false},
		{name: "multi cross chain both supported", d: multi, from: 1, to: 42161, want: true},
		{name: "multi cross chain dest unsupported", d: multi, from: 1, to: 10, want: false},
		{name: "multi same chain", d: multi, from: 1, to: 1, want: false},
		{name: "both same chain", d: both, from: 1, to: 1, want: true},
		{name: "both cross chain", d: both, from: 1, to: 8453, want: true},
		{name: "neither capability", d: Descriptor{Chains: []int64{1}}, from: 1, to: 1, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.CanServe(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanServe(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestDescriptorSupportsChain(t *testing.T) {
	d := Descriptor{Chains: []int64{1, 137}}
	if !d.SupportsChain(137) {
		t.Fatal("supported chain reported as unsupported")
	}
	if d.SupportsChain(8453) {
		t.Fatal("unsupported chain reported as supported")
	}
}
