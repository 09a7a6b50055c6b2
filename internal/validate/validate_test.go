package validate

import "testing"

func TestIsValidMAC(t *testing.T) {
	cases := map[string]bool{
		"AA:BB:CC:DD:EE:FF": true,
		"00:11:22:33:44:55": true,
		"aa:bb:cc:dd:ee:ff": false, // lowercase not accepted
		"AA:BB:CC:DD:EE":    false,
		"AA-BB-CC-DD-EE-FF": false,
		"":                  false,
	}
	for in, want := range cases {
		if got := IsValidMAC(in); got != want {
			t.Errorf("IsValidMAC(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsValidUUIDv4(t *testing.T) {
	if !IsValidUUIDv4("c2cbd1d6-2b1d-4e1b-8a1a-6f2f2b8b9a11") {
		t.Error("expected valid v4 uuid to pass")
	}
	if IsValidUUIDv4("not-a-uuid") {
		t.Error("expected garbage to fail")
	}
	if IsValidUUIDv4("00000000-0000-1000-8000-000000000000") {
		t.Error("expected non-v4 uuid to fail")
	}
}

func TestIsValidTimestampMs(t *testing.T) {
	if !IsValidTimestampMs(MinTimestampMs) {
		t.Error("lower bound should be inclusive")
	}
	if !IsValidTimestampMs(MaxTimestampMs) {
		t.Error("upper bound should be inclusive")
	}
	if IsValidTimestampMs(MinTimestampMs - 1) {
		t.Error("below lower bound should fail")
	}
	if IsValidTimestampMs(MaxTimestampMs + 1) {
		t.Error("above upper bound should fail")
	}
}

func TestIsValidBatchID(t *testing.T) {
	if IsValidBatchID("") {
		t.Error("empty batch id should fail")
	}
	if !IsValidBatchID("a") {
		t.Error("single printable char should pass")
	}
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	if !IsValidBatchID(string(long)) {
		t.Error("256 chars should pass")
	}
	tooLong := string(long) + "x"
	if IsValidBatchID(tooLong) {
		t.Error("257 chars should fail")
	}
	if IsValidBatchID("bad\nid") {
		t.Error("control characters should fail")
	}
}
