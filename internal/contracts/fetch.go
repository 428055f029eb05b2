package contracts

// FetchStatus is the typed outcome of one acquisition request
type FetchStatus int

const (
	// FetchOk means the table was returned
	FetchOk FetchStatus = iota
	// FetchNotFound means the upstream has no data for the symbol
	FetchNotFound
	// FetchRateLimited means the request budget is spent; stop acquiring
	FetchRateLimited
)

// String returns the status name
func (s FetchStatus) String() string {
	switch s {
	case FetchOk:
		return "ok"
	case FetchNotFound:
		return "not_found"
	case FetchRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// FetchResult is returned by a RawSource. Table is set only for FetchOk.
type FetchResult struct {
	Status  FetchStatus
	Table   *RawTable
	Message string
}
