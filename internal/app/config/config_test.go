package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSchedule(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fees.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return path
}

func TestLoadFeeSchedule(t *testing.T) {
	path := writeSchedule(t, `
platform_fee_bps: 200
gas_fee_amount: 50
regenerator:
  min_amount: 1000
  max_amount: 10000000
primer:
  min_amount: 1000
  max_amount: 100000000
max_proof_bytes: 5242880
`)

	fs, err := LoadFeeSchedule(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fs.PlatformFeeBps != 200 {
		t.Fatalf("platform fee bps = %d", fs.PlatformFeeBps)
	}
	if fs.Regenerator.MaxAmount != 10000000 {
		t.Fatalf("regenerator max = %d", fs.Regenerator.MaxAmount)
	}
	if fs.Primer.MaxAmount != 100000000 {
		t.Fatalf("primer max = %d", fs.Primer.MaxAmount)
	}
}

func TestLoadFeeScheduleRejectsBadLimits(t *testing.T) {
	cases := map[string]string{
		"fee over 100%": `
platform_fee_bps: 10001
gas_fee_amount: 0
regenerator: {min_amount: 1, max_amount: 2}
primer: {min_amount: 1, max_amount: 2}
max_proof_bytes: 1
`,
		"inverted limits": `
platform_fee_bps: 200
gas_fee_amount: 0
regenerator: {min_amount: 100, max_amount: 10}
primer: {min_amount: 1, max_amount: 2}
max_proof_bytes: 1
`,
		"zero min": `
platform_fee_bps: 200
gas_fee_amount: 0
regenerator: {min_amount: 0, max_amount: 10}
primer: {min_amount: 1, max_amount: 2}
max_proof_bytes: 1
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFeeSchedule(writeSchedule(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadFeeScheduleMissingFile(t *testing.T) {
	if _, err := LoadFeeSchedule(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
