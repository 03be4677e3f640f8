package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/model"
	"github.com/poll-lab/pollboard/internal/store"
)

// summaryCardTypes are the national dashboard cards, in display order.
var summaryCardTypes = []model.OptionType{
	model.OptionPartySupport,
	model.OptionJobApproval,
	model.OptionElectionFrame,
}

// SummaryRow is one canonical selection flattened for the dashboard.
type SummaryRow struct {
	OptionName          string               `json:"option_name"`
	ValueMid            *float64             `json:"value_mid,omitempty"`
	Pollster            string               `json:"pollster,omitempty"`
	SurveyEndDate       *time.Time           `json:"survey_end_date,omitempty"`
	AudienceScope       model.AudienceScope  `json:"audience_scope"`
	SourcePriority      model.SourcePriority `json:"source_priority"`
	OfficialReleaseAt   *time.Time           `json:"official_release_at,omitempty"`
	ArticlePublishedAt  *time.Time           `json:"article_published_at,omitempty"`
	FreshnessHours      *float64             `json:"freshness_hours,omitempty"`
	IsOfficialConfirmed bool                 `json:"is_official_confirmed"`
	SourceTier          model.SourceTier     `json:"selected_source_tier"`
	SourceChannel       string               `json:"selected_source_channel"`
}

// SummaryResponse groups selections per card type. Cards with no
// surviving selections come back as empty lists, not absent keys.
type SummaryResponse struct {
	AsOf  *time.Time                        `json:"as_of,omitempty"`
	Cards map[model.OptionType][]SummaryRow `json:"cards"`
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, ok := parseAsOf(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid as_of timestamp")
			return
		}

		rows, err := deps.Store.ListSummaryRows(r.Context(), store.SummaryFilter{AsOf: asOf})
		if err != nil {
			zap.L().Error("api: list summary rows", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "storage unavailable")
			return
		}

		selections := deps.Engine.Selector.Select(r.Context(), rows)

		resp := SummaryResponse{
			AsOf:  asOf,
			Cards: make(map[model.OptionType][]SummaryRow, len(summaryCardTypes)),
		}
		for _, t := range summaryCardTypes {
			resp.Cards[t] = []SummaryRow{}
		}
		for _, sel := range selections {
			if _, ok := resp.Cards[sel.Key.OptionType]; !ok {
				continue
			}
			resp.Cards[sel.Key.OptionType] = append(resp.Cards[sel.Key.OptionType], toSummaryRow(sel))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func toSummaryRow(sel model.CanonicalSelection) SummaryRow {
	channel := model.ChannelArticle
	if sel.Winner.HasOfficialChannel() {
		channel = model.ChannelOfficial
	}
	return SummaryRow{
		OptionName:          sel.Key.OptionName,
		ValueMid:            sel.Winner.ValueMid,
		Pollster:            sel.Winner.Pollster,
		SurveyEndDate:       sel.Winner.SurveyEndDate,
		AudienceScope:       sel.Key.AudienceScope,
		SourcePriority:      sel.Provenance.SourcePriority,
		OfficialReleaseAt:   sel.Provenance.OfficialReleaseAt,
		ArticlePublishedAt:  sel.Provenance.ArticlePublishedAt,
		FreshnessHours:      sel.Provenance.FreshnessHours,
		IsOfficialConfirmed: sel.Provenance.IsOfficialConfirmed,
		SourceTier:          sel.SourceTier,
		SourceChannel:       channel,
	}
}
