package common

import (
	"strings"
	"testing"
	"time"
)

func TestStripHTML_DecodesEntitiesAndStripsTags(t *testing.T) {
	in := `<p>Hello &lt;world&gt; &amp; crew</p><script>x</script><br/>line2`
	got := StripHTML(in)
	if strings.Contains(got, "<p>") || strings.Contains(got, "<script>") || strings.Contains(got, "x\n") {
		t.Fatalf("expected HTML tags stripped: %q", got)
	}
	if !strings.Contains(got, "<world>") || !strings.Contains(got, "&") {
		t.Fatalf("expected html entities decoded: %q", got)
	}
	if !strings.Contains(got, "\nline2") {
		t.Fatalf("expected line break retained: %q", got)
	}
}

func TestSanitizeForTerminal_RemovesEscapesAndControls(t *testing.T) {
	in := "ok\x1b[31mred\x1b[0m\x01\x02"
	got := SanitizeForTerminal(in)
	if strings.Contains(got, "\x1b") {
		t.Fatalf("expected ansi removed: %q", got)
	}
	if strings.ContainsRune(got, '\x01') || strings.ContainsRune(got, '\x02') {
		t.Fatalf("expected controls removed: %q", got)
	}
	if got != "okred" {
		t.Fatalf("expected plain text preserved: %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-72 * time.Hour), "3d"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "Jan 2"},
		{time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC), "Jan 2, 2022"},
	}
	for _, c := range cases {
		if got := RelativeTime(c.at, now); got != c.want {
			t.Fatalf("RelativeTime(%v) = %q, want %q", c.at, got, c.want)
		}
	}
}
