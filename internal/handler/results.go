package handler

import (
	"net/http"
	"strconv"

	"github.com/cardline/platform/internal/domain"
	"github.com/cardline/platform/internal/repository"
)

// GetResults handles GET /results: ledger summary, per-segment
// breakdown and recent settled rows. Filters: sport, card_category
// (driver|call), min_confidence, market.
func (a *API) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseResultFilter(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	summary, err := a.results.Summary(ctx, a.store.DB(), filter)
	if err != nil {
		a.logger.Error("results summary failed", "error", err)
		RespondError(w, err)
		return
	}
	segments, err := a.results.Segments(ctx, a.store.DB(), filter)
	if err != nil {
		a.logger.Error("results segments failed", "error", err)
		RespondError(w, err)
		return
	}
	recent, err := a.results.Recent(ctx, a.store.DB(), filter)
	if err != nil {
		a.logger.Error("results recent failed", "error", err)
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"summary":  summary,
			"segments": segments,
			"recent":   recent,
		},
	})
}

// GetStats handles GET /stats: the per-sport tracking roll-up.
func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.tracking.GetAll(r.Context(), a.store.DB())
	if err != nil {
		a.logger.Error("tracking stats failed", "error", err)
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"success": true, "data": stats})
}

func parseResultFilter(r *http.Request) (repository.ResultFilter, error) {
	q := r.URL.Query()
	f := repository.ResultFilter{
		Sport:  q.Get("sport"),
		Market: q.Get("market"),
	}

	if f.Sport != "" && !domain.Sport(f.Sport).Valid() {
		return f, domain.ErrValidation("unknown sport " + f.Sport)
	}

	switch f.Market {
	case "", string(domain.BetMoneyline), string(domain.BetSpread), string(domain.BetTotal):
	default:
		return f, domain.ErrValidation("market must be moneyline, spread or total")
	}

	switch cat := q.Get("card_category"); cat {
	case "", "driver", "call":
		f.CardCategory = cat
	default:
		return f, domain.ErrValidation("card_category must be driver or call")
	}

	if raw := q.Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			return f, domain.ErrValidation("min_confidence must be a number in [0,1]")
		}
		f.MinConfidence = v
	}
	return f, nil
}
