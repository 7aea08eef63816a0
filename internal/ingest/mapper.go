package ingest

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/models"
)

// listingDateLayout accepts one- or two-digit month and day.
const listingDateLayout = "1/2/2006"

// MapHit converts a source hit into the ingestion-owned grant columns. It is
// pure apart from debug logging of dropped values.
func MapHit(hit Hit, src SourceConfig) models.GrantUpsert {
	agency := hit.AgencyName
	if strings.TrimSpace(agency) == "" {
		agency = hit.Agency
	}

	return models.GrantUpsert{
		Source:     src.ID,
		SourceID:   strings.TrimSpace(hit.ID),
		Title:      normalizeSpace(hit.Title),
		Agency:     nullableText(agency),
		Deadline:   parseListingDate(hit.CloseDate),
		PostedDate: parseListingDate(hit.OpenDate),
		Category:   MapCategories(hit.FundingCategories, src.CategoryMap),
		Status:     models.GrantStatusOpen,
		SourceURL:  src.DetailURL(strings.TrimSpace(hit.ID)),
	}
}

// MapHits maps a page of hits in order.
func MapHits(hits []Hit, src SourceConfig) []models.GrantUpsert {
	out := make([]models.GrantUpsert, len(hits))
	for i, h := range hits {
		out[i] = MapHit(h, src)
	}
	return out
}

// parseListingDate turns an MM/DD/YYYY string into UTC midnight of that day.
// Empty and malformed values yield nil.
func parseListingDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(listingDateLayout, raw, time.UTC)
	if err != nil {
		zap.L().Debug("mapper: dropping malformed date", zap.String("raw", raw))
		return nil
	}
	return &t
}

// MapCategories translates a pipe-delimited list of funding category codes
// into focus-area tags. Unknown codes are dropped and the result holds each
// tag once, in first-seen order. The result is never nil.
func MapCategories(raw string, table map[string]string) []string {
	tags := make([]string, 0, 2)
	for _, code := range splitDelimited(raw, "|") {
		tag, ok := table[code]
		if !ok {
			zap.L().Debug("mapper: dropping unmapped category", zap.String("code", code))
			continue
		}
		tags = mergeUniqueFold(tags, []string{tag})
	}
	return tags
}
