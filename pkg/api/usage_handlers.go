package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/tally/pkg/httputil"
	"github.com/platinummonkey/tally/pkg/sources"
	"github.com/platinummonkey/tally/pkg/usage"
)

const (
	defaultTopN       = 20
	defaultTrailing   = 6
	maxTrailingMonths = 36
)

// parseScope reads the source scope from query parameters. An empty source
// means all sources.
func parseScope(r *http.Request) (usage.Scope, error) {
	scope := usage.Scope{SourceID: httputil.ParseQueryString(r, "source", "")}

	altOnly, err := httputil.ParseQueryBool(r, "alt", false)
	if err != nil {
		return usage.Scope{}, err
	}
	if altOnly && scope.SourceID == "" {
		return usage.Scope{}, errors.New("alt requires a source parameter")
	}
	scope.AltOnly = altOnly
	return scope, nil
}

// parseTimeFilter reads the time bound. month and from/to are mutually
// exclusive; from and to must come together.
func parseTimeFilter(r *http.Request) (usage.TimeFilter, error) {
	month := httputil.ParseQueryString(r, "month", "")
	from := httputil.ParseQueryString(r, "from", "")
	to := httputil.ParseQueryString(r, "to", "")

	switch {
	case month != "" && (from != "" || to != ""):
		return usage.TimeFilter{}, errors.New("month and from/to are mutually exclusive")
	case month != "":
		return usage.Month(month)
	case from != "" || to != "":
		if from == "" || to == "" {
			return usage.TimeFilter{}, errors.New("from and to must both be set")
		}
		return usage.Range(from, to)
	default:
		return usage.Unbounded(), nil
	}
}

func parseTrailingMonths(r *http.Request) (int, error) {
	months, err := httputil.ParseQueryInt(r, "months", defaultTrailing)
	if err != nil {
		return 0, err
	}
	if months < 1 || months > maxTrailingMonths {
		return 0, errors.New("months must be between 1 and 36")
	}
	return months, nil
}

// writeQueryError maps a report error onto a status code. An unknown source
// is a caller mistake; anything else is the engine failing outright, which
// partial-failure capture makes rare.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, sources.ErrUnknownSource) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteInternalError(w, err)
}

// listSources returns the source catalog
func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"sources": s.usage.Sources(),
	})
}

// getOverview returns combined totals plus a per-source breakdown
func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tf, err := parseTimeFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	report, err := s.usage.Overview(r.Context(), scope, tf)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getBreakdown returns buckets grouped by the requested dimensions
func (s *Server) getBreakdown(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tf, err := parseTimeFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	by := usage.GroupBy{Dimension: true}
	switch grouping := httputil.ParseQueryString(r, "by", "dimension"); grouping {
	case "dimension":
	case "source":
		by = usage.GroupBy{Source: true}
	case "source,dimension", "dimension,source":
		by = usage.GroupBy{Source: true, Dimension: true}
	case "date":
		by = usage.GroupBy{Date: true}
	default:
		httputil.WriteBadRequest(w, "unknown grouping "+grouping)
		return
	}

	report, err := s.usage.Breakdown(r.Context(), scope, tf, by)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getUsers returns the reconciled per-user usage view
func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tf, err := parseTimeFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	report, err := s.usage.Users(r.Context(), scope, tf)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getTopOwners returns the ranked-owners view
func (s *Server) getTopOwners(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tf, err := parseTimeFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	measure, err := usage.ParseMeasure(httputil.ParseQueryString(r, "by", string(usage.MeasureTokens)))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	n, err := httputil.ParseQueryInt(r, "n", defaultTopN)
	if err != nil || n < 1 {
		httputil.WriteBadRequest(w, "n must be a positive integer")
		return
	}

	report, err := s.usage.TopOwners(r.Context(), scope, tf, measure, n)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getDailyTrend returns the ordered daily series
func (s *Server) getDailyTrend(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	tf, err := parseTimeFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	report, err := s.usage.DailyTrend(r.Context(), scope, tf)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getMonthlyTrend returns the trailing monthly series
func (s *Server) getMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	months, err := parseTrailingMonths(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	report, err := s.usage.MonthlyTrend(r.Context(), scope, months)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getSignupTrend returns the directory signup series
func (s *Server) getSignupTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseTrailingMonths(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	points, err := s.usage.SignupTrend(r.Context(), months)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"points": points,
	})
}
