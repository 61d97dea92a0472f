package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shopclean/internal/core"
)

// writeJSON encodes v as JSON with status.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// cleanOptions reads region, top and months from the query string on top of
// the configured defaults. Non-integer sizes are reported together.
func cleanOptions(r *http.Request, base core.Options) (core.Options, error) {
	q := r.URL.Query()
	opts := base

	if region := strings.TrimSpace(q.Get("region")); region != "" {
		opts.PhoneRegion = strings.ToUpper(region)
	}

	var errs core.ValidationErrors
	intParam := func(name, field string, dst *int) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, core.ValidationError{Field: field, Value: raw, Message: "must be an integer"})
			return
		}
		*dst = n
	}
	intParam("top", "TopProducts", &opts.TopProducts)
	intParam("months", "Months", &opts.Months)

	if len(errs) > 0 {
		return core.Options{}, errs
	}
	return opts, nil
}

// wantsRecords reports whether the cleaned tables should be included.
func wantsRecords(r *http.Request) bool {
	for _, v := range strings.Split(r.URL.Query().Get("include"), ",") {
		if strings.TrimSpace(v) == "records" {
			return true
		}
	}
	return false
}
