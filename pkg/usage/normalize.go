package usage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
)

// calendarDayRe extracts an embedded ISO calendar day from a raw value.
var calendarDayRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// dateAttributes are the explicit date-ish attributes, in precedence order.
// The first one present wins, whether or not a date can be extracted from it.
var dateAttributes = []string{"createdAt", "timestamp", "date", "usageDate"}

// Counter synonym chains, in resolution order. The attribute names evolved
// independently per source; these chains cover every shape in the catalog.
var (
	tokensInAttrs     = []string{"inputTokens", "totalInputTokens"}
	tokensOutAttrs    = []string{"outputTokens", "totalOutputTokens"}
	tokensTotalAttrs  = []string{"totalTokens"}
	messageCountAttrs = []string{"messageCount", "messages", "requestCount"}
)

// Normalize converts one raw record into canonical form using the owning
// source's key layout for the edition the record came from.
func Normalize(item scan.Item, desc sources.Descriptor, alt bool) CanonicalRecord {
	layout := desc.LayoutFor(alt)
	rec := CanonicalRecord{SourceID: desc.ID}

	rec.OwnerID = extractOwner(item, layout)

	rawDimension := item[layout.DimensionField]
	rec.DimensionLabel = extractDimension(item, rawDimension)
	rec.Date = extractDate(item, rawDimension)

	tokensIn, inPresent := intAttr(item, tokensInAttrs)
	tokensOut, outPresent := intAttr(item, tokensOutAttrs)
	rec.TokensIn = tokensIn
	rec.TokensOut = tokensOut

	// The total is in+out only when both sides are reported; otherwise trust
	// the source's own total. Sources are not assumed self-consistent.
	if inPresent && outPresent {
		rec.TokensTotal = tokensIn + tokensOut
	} else if total, ok := intAttr(item, tokensTotalAttrs); ok {
		rec.TokensTotal = total
	} else {
		rec.TokensTotal = tokensIn + tokensOut
	}

	// A record with no message-count synonym at all represents at least one
	// message. Historical reports depend on this default.
	if messages, ok := intAttr(item, messageCountAttrs); ok {
		rec.MessageCount = messages
	} else {
		rec.MessageCount = 1
	}

	return rec
}

// extractOwner reads the layout's owner field, falling back to a literal
// ownerId attribute. An empty result marks the record unattributable.
func extractOwner(item scan.Item, layout sources.KeyLayout) string {
	raw := item[layout.OwnerField]
	if raw == "" {
		raw = item["ownerId"]
	}
	key := DecodeOwnerKey(raw)
	if key.Kind == KeyUnparseable {
		return ""
	}
	return key.ID
}

// extractDimension resolves the dimension label: composite middle segment
// first, then the explicit engine attributes.
func extractDimension(item scan.Item, rawDimension string) string {
	if key := DecodeDimensionKey(rawDimension); key.Kind == KeyComposite {
		return key.Label
	}
	if v := item["engineType"]; v != "" {
		return v
	}
	return item["engine"]
}

// extractDate applies the date precedence chain: the first explicit date-ish
// attribute present decides the outcome; only when none is present does the
// dimension field's raw value get a chance. Several sources embed the date
// nowhere else.
func extractDate(item scan.Item, rawDimension string) string {
	for _, attr := range dateAttributes {
		if v, present := item[attr]; present {
			return dateFromValue(v)
		}
	}
	return calendarDayRe.FindString(rawDimension)
}

// dateFromValue extracts a calendar day from one attribute value: composite
// prefix, then timestamp prefix, then an embedded day anywhere in the value.
func dateFromValue(v string) string {
	if i := strings.Index(v, "#"); i >= 0 {
		return v[:i]
	}
	if i := strings.Index(v, "T"); i >= 0 {
		return v[:i]
	}
	return calendarDayRe.FindString(v)
}

// intAttr resolves a counter through its synonym chain. Presence is reported
// separately so absent counters can default correctly.
func intAttr(item scan.Item, attrs []string) (int64, bool) {
	for _, attr := range attrs {
		v, present := item[attr]
		if !present {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
