package models

import "testing"

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		expect bool
	}{
		{"", false},
		{"pending", false},
		{"waiting", false},
		{"running", false},
		{"successful", true},
		{"failed", true},
		{"error", true},
		{"canceled", true},
		{"new", true},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			if got := IsTerminal(tc.status); got != tc.expect {
				t.Errorf("IsTerminal(%q) = %v, want %v", tc.status, got, tc.expect)
			}
		})
	}
}

func TestOutputs_Order(t *testing.T) {
	var o Outputs
	o.Set("JOB_ID", "7")
	o.Set("INVENTORY_ID", "3")
	o.Set("JOB_ID", "8")

	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "JOB_ID" || keys[1] != "INVENTORY_ID" {
		t.Fatalf("Keys() = %v, want [JOB_ID INVENTORY_ID]", keys)
	}
	if v, _ := o.Get("JOB_ID"); v != "8" {
		t.Errorf("Get(JOB_ID) = %q, want 8", v)
	}
	if _, ok := o.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}

	// Keys returns a copy
	keys[0] = "mutated"
	if o.Keys()[0] != "JOB_ID" {
		t.Error("Keys() exposed internal slice")
	}
}

func TestNewOutputs(t *testing.T) {
	o := NewOutputs("A", "1", "B", "2", "dangling")
	if o.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", o.Len())
	}
	a, _ := o.Get("A")
	b, _ := o.Get("B")
	if a != "1" || b != "2" {
		t.Errorf("Get(A), Get(B) = %q, %q, want 1, 2", a, b)
	}
}
