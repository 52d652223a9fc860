package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
)

func chatDescriptor() sources.Descriptor {
	return sources.Descriptor{
		ID:              "chat",
		PrimaryLocation: "chat-usage",
		AltLocation:     "chat-usage-ja",
		PrimaryLayout:   sources.KeyLayout{OwnerField: "pk", DimensionField: "sk"},
		AltLayout:       &sources.KeyLayout{OwnerField: "userKey", DimensionField: "usageKey"},
	}
}

func TestNormalizeOwner(t *testing.T) {
	desc := chatDescriptor()

	tests := []struct {
		name  string
		item  scan.Item
		alt   bool
		owner string
	}{
		{name: "composite owner key", item: scan.Item{"pk": "user#42"}, owner: "42"},
		{name: "bare owner id", item: scan.Item{"pk": "42"}, owner: "42"},
		{name: "ownerId fallback", item: scan.Item{"ownerId": "77"}, owner: "77"},
		{name: "layout field wins over fallback", item: scan.Item{"pk": "user#42", "ownerId": "77"}, owner: "42"},
		{name: "unparseable key is unattributable", item: scan.Item{"pk": "user#"}, owner: ""},
		{name: "missing owner entirely", item: scan.Item{"sk": "engine#pro#2025-10"}, owner: ""},
		{name: "alt layout field", item: scan.Item{"userKey": "user#9"}, alt: true, owner: "9"},
		{name: "alt ignores primary field", item: scan.Item{"pk": "user#42"}, alt: true, owner: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(tt.item, desc, tt.alt)
			assert.Equal(t, tt.owner, rec.OwnerID)
			assert.Equal(t, "chat", rec.SourceID)
		})
	}
}

func TestNormalizeDimension(t *testing.T) {
	desc := chatDescriptor()

	tests := []struct {
		name  string
		item  scan.Item
		label string
	}{
		{name: "composite middle segment", item: scan.Item{"sk": "engine#pro#2025-10"}, label: "pro"},
		{name: "engineType attribute", item: scan.Item{"sk": "2025-10-28#11", "engineType": "fast"}, label: "fast"},
		{name: "engine attribute", item: scan.Item{"engine": "classic"}, label: "classic"},
		{name: "engineType wins over engine", item: scan.Item{"engineType": "fast", "engine": "classic"}, label: "fast"},
		{name: "bare dimension is not a label", item: scan.Item{"sk": "misc-value"}, label: ""},
		{name: "composite wins over attributes", item: scan.Item{"sk": "engine#pro#2025-10", "engineType": "fast"}, label: "pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(tt.item, desc, false)
			assert.Equal(t, tt.label, rec.DimensionLabel)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	desc := chatDescriptor()

	tests := []struct {
		name string
		item scan.Item
		date string
	}{
		{name: "createdAt composite prefix", item: scan.Item{"createdAt": "2025-10-28#11"}, date: "2025-10-28"},
		{name: "createdAt timestamp prefix", item: scan.Item{"createdAt": "2025-10-28T09:15:00Z"}, date: "2025-10-28"},
		{name: "createdAt plain day", item: scan.Item{"createdAt": "2025-10-28"}, date: "2025-10-28"},
		{name: "timestamp attribute", item: scan.Item{"timestamp": "2025-03-02T00:00:00Z"}, date: "2025-03-02"},
		{name: "usageDate attribute", item: scan.Item{"usageDate": "2024-12-01"}, date: "2024-12-01"},
		{name: "precedence order", item: scan.Item{"createdAt": "2025-01-01", "usageDate": "2024-12-01"}, date: "2025-01-01"},
		{name: "dimension embedded day", item: scan.Item{"sk": "engine#pro#2025-10-05"}, date: "2025-10-05"},
		{name: "dimension month token has no day", item: scan.Item{"sk": "engine#pro#2025-10"}, date: ""},
		{name: "present attr wins even when empty", item: scan.Item{"createdAt": "", "sk": "engine#pro#2025-10-05"}, date: ""},
		{name: "present attr wins even when garbage", item: scan.Item{"createdAt": "not-a-date", "usageDate": "2024-12-01"}, date: ""},
		{name: "no date anywhere", item: scan.Item{"pk": "user#1"}, date: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(tt.item, desc, false)
			assert.Equal(t, tt.date, rec.Date)
		})
	}
}

func TestNormalizeCounters(t *testing.T) {
	desc := chatDescriptor()

	tests := []struct {
		name     string
		item     scan.Item
		in       int64
		out      int64
		total    int64
		messages int64
	}{
		{
			name:     "both sides present",
			item:     scan.Item{"inputTokens": "100", "outputTokens": "40", "totalTokens": "999"},
			in:       100, out: 40, total: 140, messages: 1,
		},
		{
			name:     "only total reported",
			item:     scan.Item{"totalTokens": "250"},
			total:    250,
			messages: 1,
		},
		{
			name:  "one side present uses reported total",
			item:  scan.Item{"inputTokens": "100", "totalTokens": "300"},
			in:    100, total: 300, messages: 1,
		},
		{
			name: "one side, no reported total",
			item: scan.Item{"outputTokens": "55"},
			out:  55, total: 55, messages: 1,
		},
		{
			name: "synonym chain totalInputTokens",
			item: scan.Item{"totalInputTokens": "30", "totalOutputTokens": "20"},
			in:   30, out: 20, total: 50, messages: 1,
		},
		{
			name:     "messageCount explicit",
			item:     scan.Item{"messageCount": "7"},
			messages: 7,
		},
		{
			name:     "messages synonym",
			item:     scan.Item{"messages": "3"},
			messages: 3,
		},
		{
			name:     "requestCount synonym",
			item:     scan.Item{"requestCount": "12"},
			messages: 12,
		},
		{
			name:     "explicit zero messages kept",
			item:     scan.Item{"messageCount": "0"},
			messages: 0,
		},
		{
			name:     "unparseable counter skipped in chain",
			item:     scan.Item{"messageCount": "lots", "messages": "4"},
			messages: 4,
		},
		{
			name:     "whitespace tolerated",
			item:     scan.Item{"inputTokens": " 10 ", "outputTokens": "5"},
			in:       10, out: 5, total: 15, messages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(tt.item, desc, false)
			assert.Equal(t, tt.in, rec.TokensIn, "tokens in")
			assert.Equal(t, tt.out, rec.TokensOut, "tokens out")
			assert.Equal(t, tt.total, rec.TokensTotal, "tokens total")
			assert.Equal(t, tt.messages, rec.MessageCount, "message count")
		})
	}
}
