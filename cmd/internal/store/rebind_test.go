package store

import "testing"

func TestRebind(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"UPDATE t SET a = ?, b = '?' WHERE c = ?", "UPDATE t SET a = $1, b = '?' WHERE c = $2"},
		{"INSERT INTO t VALUES (?,?,?,?,?,?,?,?,?,?)", "INSERT INTO t VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)"},
	}
	for _, tc := range cases {
		if got := Rebind(tc.in); got != tc.want {
			t.Fatalf("Rebind(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}
