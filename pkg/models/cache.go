package models

import "encoding/json"

// Cache namespaces. Each maps to its own table but shares key/TTL/statistics
// mechanics.
const (
	NamespaceMerchantNames    = "merchant_names"
	NamespaceAIInsights       = "ai_insights"
	NamespaceSnowflakeResults = "snowflake_results"
	NamespaceLogos            = "logos"
)

// Namespaces lists every cache namespace in a stable order.
var Namespaces = []string{
	NamespaceMerchantNames,
	NamespaceAIInsights,
	NamespaceSnowflakeResults,
	NamespaceLogos,
}

// MerchantName is a cached raw-name -> standardized-name mapping.
type MerchantName struct {
	Raw          string  `json:"raw"`
	Standardized string  `json:"standardized"`
	Confidence   float64 `json:"confidence"`
	Hit          bool    `json:"hit"`
}

// AIInsight is a cached structured AI response plus generation metadata.
type AIInsight struct {
	Response json.RawMessage `json:"response"`
	Model    string          `json:"model"`
	Tokens   *int            `json:"tokens,omitempty"`
}

// QueryResult is a cached warehouse result set.
type QueryResult struct {
	Rows       json.RawMessage `json:"rows"`
	RowCount   int             `json:"row_count"`
	DurationMS *int            `json:"duration_ms,omitempty"`
}

// Logo is a cached logo lookup. Found is false when a previous lookup
// determined no logo exists; that negative result is itself cacheable and
// distinct from a cache miss (Hit=false).
type Logo struct {
	URL   *string `json:"url,omitempty"`
	Found bool    `json:"found"`
	Hit   bool    `json:"hit"`
}

// CacheStats merges today's hit/miss counters with whole-table rollups for
// one namespace.
type CacheStats struct {
	Hits            int     `json:"hits"`
	Misses          int     `json:"misses"`
	Total           int     `json:"total"`
	HitRate         float64 `json:"hit_rate"`
	Entries         int     `json:"entries"`
	TotalHits       int     `json:"total_hits"`
	AvgHitsPerEntry float64 `json:"avg_hits_per_entry"`
	SpaceMB         float64 `json:"space_mb"`
}
