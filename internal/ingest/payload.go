package ingest

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/poll-lab/pollboard/internal/model"
	"github.com/poll-lab/pollboard/internal/store"
)

// Payload is one ingest invocation's worth of extracted records.
// Timestamps arrive as strings in whatever form the extractor produced;
// they are parsed leniently during conversion.
type Payload struct {
	RunType          string        `json:"run_type"`
	ExtractorVersion string        `json:"extractor_version"`
	Records          []RecordInput `json:"records"`
}

// ArticleInput is the source article of a record.
type ArticleInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Publisher   string `json:"publisher,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// ObservationInput is one extracted poll observation.
type ObservationInput struct {
	ObservationKey     string   `json:"observation_key"`
	Pollster           string   `json:"pollster"`
	Title              string   `json:"title,omitempty"`
	SurveyEndDate      string   `json:"survey_end_date,omitempty"`
	AudienceScope      string   `json:"audience_scope,omitempty"`
	AudienceRegionCode *string  `json:"audience_region_code,omitempty"`
	RegionCode         *string  `json:"region_code,omitempty"`
	OfficeType         string   `json:"office_type,omitempty"`
	SourceChannel      *string  `json:"source_channel,omitempty"`
	SourceChannels     []string `json:"source_channels,omitempty"`
	OfficialReleaseAt  string   `json:"official_release_at,omitempty"`
	Verified           bool     `json:"verified"`
}

// OptionInput is one option row under an observation.
type OptionInput struct {
	OptionType string  `json:"option_type"`
	OptionName string  `json:"option_name"`
	ValueRaw   *string `json:"value_raw,omitempty"`
}

// RecordInput bundles an article with its observation and options.
type RecordInput struct {
	Article     *ArticleInput    `json:"article,omitempty"`
	Observation ObservationInput `json:"observation"`
	Options     []OptionInput    `json:"options"`
}

// DecodePayload reads and validates a JSON payload.
func DecodePayload(r io.Reader) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, eris.Wrap(err, "ingest: decode payload")
	}
	if len(p.Records) == 0 {
		return nil, eris.New("ingest: payload has no records")
	}
	for i, rec := range p.Records {
		if rec.Observation.ObservationKey == "" {
			return nil, eris.Errorf("ingest: record %d missing observation_key", i)
		}
		if rec.Observation.Pollster == "" {
			return nil, eris.Errorf("ingest: record %d missing pollster", i)
		}
	}
	if p.RunType == "" {
		p.RunType = "manual"
	}
	if p.ExtractorVersion == "" {
		p.ExtractorVersion = "manual-v1"
	}
	return &p, nil
}

// toStoreRecord converts a decoded record into store form, parsing
// timestamps leniently and normalizing percentage values.
func toStoreRecord(in RecordInput) store.Record {
	obs := in.Observation
	rec := store.Record{
		Observation: store.ObservationRecord{
			ObservationKey:     obs.ObservationKey,
			Pollster:           obs.Pollster,
			Title:              obs.Title,
			SurveyEndDate:      model.ParseDate(obs.SurveyEndDate),
			AudienceScope:      model.NormalizeScope(obs.AudienceScope),
			AudienceRegionCode: obs.AudienceRegionCode,
			RegionCode:         obs.RegionCode,
			OfficeType:         obs.OfficeType,
			SourceChannel:      obs.SourceChannel,
			SourceChannels:     obs.SourceChannels,
			OfficialReleaseAt:  model.ParseInstant(obs.OfficialReleaseAt),
			Verified:           obs.Verified,
		},
	}

	if in.Article != nil {
		rec.Article = &store.ArticleRecord{
			URL:         in.Article.URL,
			Title:       in.Article.Title,
			Publisher:   in.Article.Publisher,
			PublishedAt: model.ParseInstant(in.Article.PublishedAt),
		}
	}

	for _, opt := range in.Options {
		val := NormalizePercentage(opt.ValueRaw)
		rec.Options = append(rec.Options, store.OptionRecord{
			OptionType: model.OptionType(opt.OptionType),
			OptionName: opt.OptionName,
			ValueRaw:   opt.ValueRaw,
			ValueMin:   val.Min,
			ValueMax:   val.Max,
			ValueMid:   val.Mid,
			IsMissing:  val.Missing,
		})
	}

	return rec
}
