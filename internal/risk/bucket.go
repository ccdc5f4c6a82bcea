package risk

// BucketEmpty is the credit_limit_bucket label for the empty-transactions
// error outcome (spec.md §4.5, §6.5).
const BucketEmpty = "$0"

// Bucket returns the credit_limit_bucket metric label for tier.
func Bucket(tier Tier) string {
	return string(tier)
}
