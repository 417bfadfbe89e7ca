package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mbeoliero/uq/sdk"
)

var statusIcons = map[string]string{
	sdk.StatusOnline:    "● online",
	sdk.StatusAway:      "◐ away",
	sdk.StatusBusy:      "⊘ busy",
	sdk.StatusInvisible: "○ invisible",
	sdk.StatusOffline:   "○ offline",
}

func statusBadge(status string) string {
	if badge, ok := statusIcons[status]; ok {
		return badge
	}
	return "○ offline"
}

// lastSeen renders a unix millisecond timestamp relative to now
func lastSeen(status string, ms int64) string {
	if status == sdk.StatusOnline {
		return "now"
	}
	if ms <= 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(ms))
}

func formatUser(u *sdk.UserInfo) string {
	if u == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s (UQ#%d)", u.Username, u.UqNumber)
}

func printProfile(w io.Writer, u *sdk.UserInfo) {
	fmt.Fprintf(w, "%s\n", formatUser(u))
	fmt.Fprintf(w, "  status:    %s\n", statusBadge(u.Status))
	if u.Bio != "" {
		fmt.Fprintf(w, "  bio:       %s\n", u.Bio)
	}
	if len(u.Tags) > 0 {
		fmt.Fprintf(w, "  tags:      %s\n", strings.Join(u.Tags, ", "))
	}
	fmt.Fprintf(w, "  joined:    %s\n", humanize.Time(time.UnixMilli(u.CreatedAt)))
}

func clock(ms int64) string {
	return time.UnixMilli(ms).Format("15:04")
}
