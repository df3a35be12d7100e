package matching

// Reason is a machine-readable code explaining why a vendor produced no offer.
type Reason string

const (
	ReasonNone Reason = ""

	// Validation failures, in rule order.
	ReasonPriceOutOfRange Reason = "price_out_of_range"
	ReasonFormatMissing   Reason = "format_missing"
	ReasonFormatBlocked   Reason = "format_blocked"
	ReasonLowSimilarity   Reason = "low_similarity"
	ReasonArtistMissing   Reason = "artist_missing"

	// Adapter outcomes that never reach validation.
	ReasonNoQuery     Reason = "no_query"
	ReasonNoCandidate Reason = "no_candidate"
	ReasonBadPrice    Reason = "unparsable_price"
	ReasonFetchFailed Reason = "fetch_failed"
	ReasonPanic       Reason = "adapter_panic"
)

// Verdict is the outcome of validating one candidate.
type Verdict struct {
	OK     bool
	Reason Reason
	Detail string
}

func accept() Verdict {
	return Verdict{OK: true}
}

func reject(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}
