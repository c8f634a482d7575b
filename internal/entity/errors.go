package entity

// ErrorKind names a class of per-URL failure in reports and the ledger.
type ErrorKind string

const (
	KindTransport        ErrorKind = "transport"
	KindBlocked          ErrorKind = "blocked"
	KindNotFound         ErrorKind = "not_found"
	KindParse            ErrorKind = "parse"
	KindStorage          ErrorKind = "storage"
	KindInvalidURL       ErrorKind = "invalid_url"
	KindUnexpectedStatus ErrorKind = "unexpected_status"
	KindCanceled         ErrorKind = "canceled"
	KindUnknown          ErrorKind = "unknown"
)
