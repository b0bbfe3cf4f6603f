package eventstream

import "errors"

// ErrNilIngestedEvent indicates a nil ingestion event payload was provided to a publisher.
var ErrNilIngestedEvent = errors.New("nil ingested event")
