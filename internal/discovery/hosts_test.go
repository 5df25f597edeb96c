package discovery

import (
	"errors"
	"testing"
)

func TestParseSubnet(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10.0.0.0/24", "10.0.0.0/24", false},
		{"10.0.0.77/24", "10.0.0.0/24", false},
		{" 192.168.1.0/30 ", "192.168.1.0/30", false},
		{"10.0.0.5", "10.0.0.5/32", false},
		{"fd00::1/126", "fd00::/126", false},
		{"10.0.0.0/33", "", true},
		{"not-a-subnet", "", true},
		{"", "", true},
		{"fe80::1%eth0", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSubnet(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSubnet) {
					t.Errorf("ParseSubnet(%q) error = %v, want ErrInvalidSubnet", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSubnet(%q) error = %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseSubnet(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestUsableHosts(t *testing.T) {
	tests := []struct {
		subnet string
		first  string
		last   string
		count  int64
	}{
		{"10.0.0.0/24", "10.0.0.1", "10.0.0.254", 254},
		{"10.0.0.0/30", "10.0.0.1", "10.0.0.2", 2},
		{"10.0.0.0/31", "10.0.0.0", "10.0.0.1", 2},
		{"10.0.0.9/32", "10.0.0.9", "10.0.0.9", 1},
		{"fd00::/126", "fd00::1", "fd00::3", 3},
		{"fd00::/127", "fd00::", "fd00::1", 2},
	}
	for _, tt := range tests {
		t.Run(tt.subnet, func(t *testing.T) {
			p, err := ParseSubnet(tt.subnet)
			if err != nil {
				t.Fatal(err)
			}
			r, err := usableHosts(p)
			if err != nil {
				t.Fatal(err)
			}
			if r.count != tt.count {
				t.Errorf("count = %d, want %d", r.count, tt.count)
			}
			addrs := r.addrs()
			if addrs[0].String() != tt.first || addrs[len(addrs)-1].String() != tt.last {
				t.Errorf("range = %s..%s, want %s..%s", addrs[0], addrs[len(addrs)-1], tt.first, tt.last)
			}
		})
	}
}

func TestUsableHosts_TooLarge(t *testing.T) {
	p, err := ParseSubnet("fd00::/64")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := usableHosts(p); !errors.Is(err, ErrSubnetTooLarge) {
		t.Errorf("usableHosts(/64) error = %v, want ErrSubnetTooLarge", err)
	}
}
