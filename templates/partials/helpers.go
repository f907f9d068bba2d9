package partials

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
)

// formatRelativeTime renders t relative to now
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else if duration < 7*24*time.Hour {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	return services.FormatDate(t)
}

func statusClass(s models.CaseStatus) string {
	return "status status-" + string(s)
}

func probability(p *float64) string {
	if p == nil {
		return "-"
	}
	return services.FormatPercent(*p)
}

func agingDays(d *int) string {
	if d == nil {
		return "-"
	}
	return strconv.Itoa(*d) + " days"
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// withQuery returns base with key set to value, keeping the other params
func withQuery(base string, q url.Values, key, value string) string {
	next := url.Values{}
	for k, vs := range q {
		next[k] = append([]string(nil), vs...)
	}
	if value == "" {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	if enc := next.Encode(); enc != "" {
		return base + "?" + enc
	}
	return base
}
