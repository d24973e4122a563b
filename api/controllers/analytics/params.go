package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/voltline-backend/api/validators"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// resolveDashboardRange returns inclusive yyyy-MM-dd bounds. Explicit
// from_date/to_date win; otherwise a preset counts back from today.
func resolveDashboardRange(r *http.Request, now time.Time) (string, string, error) {
	from, err := validators.ParseQueryDate(r, "from_date")
	if err != nil {
		return "", "", err
	}
	to, err := validators.ParseQueryDate(r, "to_date")
	if err != nil {
		return "", "", err
	}
	if from != "" || to != "" {
		if from == "" || to == "" {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "from_date and to_date must be provided together")
		}
		return from, to, nil
	}

	days, ok := presetDays(strings.TrimSpace(r.URL.Query().Get("preset")))
	if !ok {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	end := now.UTC()
	start := end.AddDate(0, 0, -(days - 1))
	return start.Format(validators.DateLayout), end.Format(validators.DateLayout), nil
}

func presetDays(value string) (int, bool) {
	if value == "" {
		value = "30d"
	}
	switch strings.ToLower(value) {
	case "7d":
		return 7, true
	case "30d":
		return 30, true
	case "90d":
		return 90, true
	default:
		return 0, false
	}
}
