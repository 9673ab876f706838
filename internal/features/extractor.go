// Package features implements deterministic feature extraction for
// transactions. Extraction is a pure function: identical input always
// yields the identical vector and hash, with no I/O or randomness.
package features

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/marloweh/suggestd/internal/model"
)

// SchemaVersion tags the feature name set. Changing the set of feature
// names invalidates previously stored hashes, so any schema change must
// bump this version rather than silently mutate the vocabulary.
const SchemaVersion = "v1"

// merchantKeywords is the fixed vocabulary of known-merchant substrings.
var merchantKeywords = []string{
	"amazon",
	"costco",
	"mcdonald",
	"netflix",
	"shell",
	"spotify",
	"starbucks",
	"target",
	"uber",
	"walmart",
}

// categoryKeywords is the fixed vocabulary of spending-category hint words
// searched for in the memo and merchant text.
var categoryKeywords = []string{
	"coffee",
	"flight",
	"fuel",
	"gas",
	"grocery",
	"gym",
	"hotel",
	"insurance",
	"parking",
	"payroll",
	"pharmacy",
	"rent",
	"restaurant",
	"salary",
	"subscription",
}

// Vector is a fixed-schema feature vector. Values are keyed by feature
// name; boolean features are encoded as 0 or 1.
type Vector struct {
	Schema string
	Values map[string]float64
}

// Names returns the feature names in canonical (sorted) order.
func (v Vector) Names() []string {
	names := make([]string, 0, len(v.Values))
	for name := range v.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the value for a named feature, or zero when absent.
func (v Vector) Get(name string) float64 {
	return v.Values[name]
}

// canonical serializes the vector with stable key ordering so that hash
// equality implies feature equality regardless of construction order.
func (v Vector) canonical() string {
	var b strings.Builder
	b.WriteString(v.Schema)
	for _, name := range v.Names() {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(v.Values[name], 'g', -1, 64))
	}
	return b.String()
}

// Hash returns a stable digest of the vector.
func (v Vector) Hash() string {
	sum := sha256.Sum256([]byte(v.canonical()))
	return fmt.Sprintf("%x", sum)
}

// Extract maps a transaction to its feature vector and content hash.
// A transaction with neither merchant nor memo still produces a valid
// vector; absence of signal is itself valid input.
func Extract(txn model.Transaction) (Vector, string) {
	values := make(map[string]float64, 6+len(merchantKeywords)+len(categoryKeywords))

	values["amount"] = txn.Amount
	values["amount_abs"] = abs(txn.Amount)
	values["is_inflow"] = boolFeature(txn.Amount > 0)
	values["is_outflow"] = boolFeature(txn.Amount < 0)

	merchant := strings.ToLower(txn.Merchant)
	memo := strings.ToLower(txn.Memo)
	values["merchant_len"] = float64(len(merchant))
	values["memo_len"] = float64(len(memo))

	for _, kw := range merchantKeywords {
		values["merchant_kw_"+kw] = boolFeature(strings.Contains(merchant, kw))
	}

	combined := merchant + " " + memo
	for _, kw := range categoryKeywords {
		values["category_kw_"+kw] = boolFeature(strings.Contains(combined, kw))
	}

	v := Vector{Schema: SchemaVersion, Values: values}
	return v, v.Hash()
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
