package cron

import "testing"

func FuzzParseSchedule(f *testing.F) {
	f.Add("*/5 * * * *")
	f.Add("0 0 * * *")
	f.Add("0 */6 * * 1-5")
	f.Add("invalid")
	f.Add("")
	f.Add("60 * * * *")

	f.Fuzz(func(_ *testing.T, expr string) {
		// Must not panic; errors are expected.
		_ = ParseSchedule(expr)
	})
}
