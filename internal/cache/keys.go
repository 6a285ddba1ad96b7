package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// MerchantKey derives the merchant_names cache key from a raw merchant name.
// Case-insensitive: "STARBUCKS #1234 " and "starbucks #1234" share a row.
func MerchantKey(rawName string) string {
	return strings.ToLower(strings.TrimSpace(rawName))
}

// LogoKey derives the logos cache key. Logo lookups are keyed by the
// standardized merchant name as-is.
func LogoKey(merchantName string) string {
	return merchantName
}

// InsightKey derives the ai_insights cache key from a prompt template
// identifier and the context the insight was generated from.
func InsightKey(promptTemplate string, context map[string]any) string {
	return hashKey(promptTemplate, context)
}

// QueryKey derives the snowflake_results cache key from a query template
// identifier and its bind parameters.
func QueryKey(queryTemplate string, params map[string]any) string {
	return hashKey(queryTemplate, params)
}

// hashKey hashes template + canonicalized context. encoding/json emits map
// keys in sorted order, so two logically identical contexts produce the same
// key no matter how the caller assembled them. Without that property the
// cache degrades to always-miss.
func hashKey(template string, context map[string]any) string {
	encoded, err := json.Marshal(context)
	if err != nil {
		// fmt also prints maps in sorted key order
		encoded = []byte(fmt.Sprintf("%v", context))
	}
	sum := sha256.Sum256([]byte(template + ":" + string(encoded)))
	return hex.EncodeToString(sum[:])
}
